// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func decodeAll(t *testing.T, d *StreamDecoder, data []byte) ([]*Frame, []error) {
	t.Helper()
	var frames []*Frame
	var errs []error
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, errs
}

var frameOpts = cmpopts.IgnoreFields(Frame{}, "Timestamp", "Raw")

func TestStreamDecoderKnownFrame(t *testing.T) {
	// 19 5 29 2 25 13 0 163 from the vehicle manual
	data := []byte{19, 5, 29, 2, 25, 13, 0, 163}
	d := NewStreamDecoder([]PacketID{PacketCliffFrontLeftSignal, PacketVirtualWall})

	frames, errs := decodeAll(t, d, data)
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	want := &Frame{Readings: []Reading{{PacketCliffFrontLeftSignal, 537}, {PacketVirtualWall, 0}}}
	if diff := cmp.Diff(want, frames[0], frameOpts); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(data, frames[0].Raw); diff != "" {
		t.Errorf("Raw mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	ids := []PacketID{PacketDistance, GroupBattery, PacketOIMode}
	readings := []Reading{
		{PacketDistance, -42},
		{PacketChargingState, 2},
		{PacketVoltage, 16000},
		{PacketCurrent, -1200},
		{PacketBatteryTemperature, 31},
		{PacketBatteryCharge, 2500},
		{PacketBatteryCapacity, 2700},
		{PacketOIMode, 3},
	}
	data, err := EncodeFrame(ids, readings)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	size, _ := FrameSize(ids)
	if len(data) != size {
		t.Errorf("len(frame) = %d, FrameSize() = %d", len(data), size)
	}

	frames, err := NewStreamDecoder(ids).Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames", len(frames))
	}
	if diff := cmp.Diff(readings, frames[0].Readings); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
	if v, ok := frames[0].Value(PacketCurrent); !ok || v != -1200 {
		t.Errorf("Value(CURRENT) = %d, %v", v, ok)
	}
}

func TestStreamDecoderErrors(t *testing.T) {
	good, err := EncodeFrame([]PacketID{PacketWall}, []Reading{{PacketWall, 1}})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("checksum", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1]++
		_, errs := decodeAll(t, NewStreamDecoder(nil), bad)
		var ce *ChecksumError
		if len(errs) != 1 || !errors.As(errs[0], &ce) {
			t.Fatalf("errors = %v, want one ChecksumError", errs)
		}
		if ce.Sum != 1 {
			t.Errorf("Sum = %d, want 1", ce.Sum)
		}
	})

	t.Run("subscription mismatch", func(t *testing.T) {
		_, errs := decodeAll(t, NewStreamDecoder([]PacketID{PacketAngle}), good)
		var fe *FramingError
		if len(errs) != 1 || !errors.As(errs[0], &fe) {
			t.Fatalf("errors = %v, want one FramingError", errs)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		// 19 2 99 0 checksum
		frame := []byte{19, 2, 99, 0}
		var sum byte
		for _, b := range frame {
			sum += b
		}
		frame = append(frame, ^sum+1)
		_, errs := decodeAll(t, NewStreamDecoder(nil), frame)
		if len(errs) != 1 || !IsFraming(errs[0]) {
			t.Fatalf("errors = %v, want one framing error", errs)
		}
	})

	t.Run("truncated packet", func(t *testing.T) {
		// distance needs two data bytes, the frame carries one
		frame := []byte{19, 2, 19, 0}
		var sum byte
		for _, b := range frame {
			sum += b
		}
		frame = append(frame, ^sum+1)
		_, errs := decodeAll(t, NewStreamDecoder(nil), frame)
		if len(errs) != 1 || !IsFraming(errs[0]) {
			t.Fatalf("errors = %v, want one framing error", errs)
		}
	})

	t.Run("zero length", func(t *testing.T) {
		_, errs := decodeAll(t, NewStreamDecoder(nil), []byte{19, 0})
		if len(errs) != 1 || !IsFraming(errs[0]) {
			t.Fatalf("errors = %v, want one framing error", errs)
		}
	})
}

func TestStreamDecoderResync(t *testing.T) {
	ids := []PacketID{PacketWall}
	f1, _ := EncodeFrame(ids, []Reading{{PacketWall, 0}})
	f2, _ := EncodeFrame(ids, []Reading{{PacketWall, 1}})

	corrupt := append([]byte(nil), f1...)
	corrupt[3] ^= 0xFF

	var data []byte
	data = append(data, 0x00, 0xAA) // noise before the first header
	data = append(data, f1...)
	data = append(data, corrupt...)
	data = append(data, f2...)

	frames, errs := decodeAll(t, NewStreamDecoder(ids), data)
	if len(errs) != 1 {
		t.Errorf("errors = %v, want one", errs)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if v, _ := frames[1].Value(PacketWall); v != 1 {
		t.Errorf("second frame wall = %d, want 1", v)
	}
}

func TestStreamDecoderStrayHeader(t *testing.T) {
	ids := []PacketID{PacketDistance}
	frame := []byte{0x13, 0x03, 0x13, 0x00, 0x05, 0xD2}

	tests := []struct {
		name   string
		prefix []byte
	}{
		{"stray header", []byte{0x13}},
		{"stray header and noise", []byte{0x13, 0x07}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), tt.prefix...)
			for range 4 {
				data = append(data, frame...)
			}

			frames, errs := decodeAll(t, NewStreamDecoder(ids), data)
			if len(frames) != 4 {
				t.Errorf("got %d frames, want 4", len(frames))
			}
			if len(errs) != 1 || !IsFraming(errs[0]) {
				t.Errorf("errors = %v, want one framing error", errs)
			}
			for _, f := range frames {
				if v, _ := f.Value(PacketDistance); v != 5 {
					t.Errorf("distance = %d, want 5", v)
				}
			}
		})
	}
}

func TestEncodeFrameErrors(t *testing.T) {
	if _, err := EncodeFrame([]PacketID{PacketWall}, nil); err == nil {
		t.Error("missing reading accepted")
	}
	if _, err := EncodeFrame([]PacketID{60}, nil); !IsInvalidInput(err) {
		t.Errorf("bad id error = %v", err)
	}
	ids := make([]PacketID, 5)
	var readings []Reading
	for i := range ids {
		ids[i] = GroupAll
		readings = append(readings, syntheticReadings(GroupAll)...)
	}
	if _, err := EncodeFrame(ids, readings); !IsFraming(err) {
		t.Errorf("oversized frame error = %v", err)
	}
}

func syntheticReadings(id PacketID) []Reading {
	var out []Reading
	for _, m := range Members(id) {
		out = append(out, Reading{ID: m, Value: int(m)})
	}
	return out
}
