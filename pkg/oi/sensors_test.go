// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroupWidths(t *testing.T) {
	tests := []struct {
		id    PacketID
		width int
		first PacketID
		last  PacketID
	}{
		{GroupCore, 26, 7, 26},
		{GroupSwitches, 10, 7, 16},
		{GroupMotion, 6, 17, 20},
		{GroupBattery, 10, 21, 26},
		{GroupSignals, 14, 27, 34},
		{GroupState, 12, 35, 42},
		{GroupAll, 52, 7, 42},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			w, err := WidthOf(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if w != tt.width {
				t.Errorf("WidthOf(%d) = %d, want %d", tt.id, w, tt.width)
			}
			m := Members(tt.id)
			if m[0] != tt.first || m[len(m)-1] != tt.last {
				t.Errorf("Members(%d) spans %d-%d, want %d-%d", tt.id, m[0], m[len(m)-1], tt.first, tt.last)
			}
			if !IsGroup(tt.id) {
				t.Error("IsGroup() = false")
			}
		})
	}
}

func TestSinglePackets(t *testing.T) {
	tests := []struct {
		id     PacketID
		width  int
		signed bool
		name   string
	}{
		{PacketBumpsWheelDrops, 1, false, "BUMPS_WHEEL_DROPS"},
		{PacketDistance, 2, true, "DISTANCE"},
		{PacketVoltage, 2, false, "VOLTAGE"},
		{PacketBatteryTemperature, 1, true, "BATTERY_TEMPERATURE"},
		{PacketOIMode, 1, false, "OI_MODE"},
		{PacketRequestedLeftVel, 2, true, "REQUESTED_LEFT_VELOCITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WidthOf(tt.id)
			if err != nil || w != tt.width {
				t.Errorf("WidthOf() = %d, %v; want %d", w, err, tt.width)
			}
			if Signed(tt.id) != tt.signed {
				t.Errorf("Signed() = %v, want %v", Signed(tt.id), tt.signed)
			}
			if tt.id.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.id.String(), tt.name)
			}
			if IsGroup(tt.id) {
				t.Error("IsGroup() = true")
			}
		})
	}

	var fe *FieldRangeError
	if _, err := WidthOf(43); !errors.As(err, &fe) {
		t.Errorf("WidthOf(43) error = %v, want FieldRangeError", err)
	}
	if PacketID(43).String() != "PACKET_43" {
		t.Errorf("String() = %q", PacketID(43).String())
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		id   PacketID
		data []byte
		want []Reading
	}{
		{"unsigned byte", PacketWall, []byte{1}, []Reading{{PacketWall, 1}}},
		{"signed byte", PacketBatteryTemperature, []byte{0xF6}, []Reading{{PacketBatteryTemperature, -10}}},
		{"signed word", PacketDistance, []byte{0xFF, 0x9C}, []Reading{{PacketDistance, -100}}},
		{"unsigned word", PacketVoltage, []byte{0x3A, 0x98}, []Reading{{PacketVoltage, 15000}}},
		{"group", GroupMotion, []byte{0x00, 0x04, 0x00, 0x0A, 0xFF, 0xFB}, []Reading{
			{PacketInfrared, 0},
			{PacketButtons, 4},
			{PacketDistance, 10},
			{PacketAngle, -5},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.id, tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeList(t *testing.T) {
	got, err := DecodeList([]PacketID{PacketBumpsWheelDrops, PacketWall}, []byte{0x03, 0x01})
	if err != nil {
		t.Fatalf("DecodeList([7,8]) error = %v", err)
	}
	want := []Reading{{PacketBumpsWheelDrops, 3}, {PacketWall, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeList() mismatch (-want +got):\n%s", diff)
	}

	// 7 and 19 need three bytes
	var fe *FramingError
	_, err = DecodeList([]PacketID{PacketBumpsWheelDrops, PacketDistance}, []byte{0, 0})
	if !errors.As(err, &fe) {
		t.Fatalf("DecodeList() error = %v, want FramingError", err)
	}
	if fe.Expected != 3 || fe.Got != 2 {
		t.Errorf("FramingError = %+v", fe)
	}

	if _, err := DecodeList([]PacketID{PacketWall}, []byte{0, 0}); !IsFraming(err) {
		t.Errorf("too many bytes: error = %v, want framing error", err)
	}
}

func TestSensorsApply(t *testing.T) {
	var s Sensors
	s.Apply([]Reading{
		{PacketBumpsWheelDrops, BumpLeft},
		{PacketCliffFrontRight, 1},
		{PacketVoltage, 15500},
		{PacketCurrent, -300},
		{PacketOIMode, 2},
		{PacketSongPlaying, 1},
	})

	if !s.Bumped() {
		t.Error("Bumped() = false")
	}
	if !s.AnyCliff() || !s.CliffFrontRight {
		t.Error("cliff front right not set")
	}
	if s.Voltage != 15500 || s.Current != -300 {
		t.Errorf("Voltage, Current = %d, %d", s.Voltage, s.Current)
	}
	if s.Mode() != ModeSafe {
		t.Errorf("Mode() = %s, want SAFE", s.Mode())
	}
	if !s.SongPlaying {
		t.Error("SongPlaying = false")
	}
	if s.Updated.IsZero() {
		t.Error("Updated not set")
	}
}

func TestParsePacketID(t *testing.T) {
	tests := []struct {
		in      string
		want    PacketID
		wantErr bool
	}{
		{"19", PacketDistance, false},
		{"distance", PacketDistance, false},
		{"GROUP_6", GroupAll, false},
		{" oi_mode ", PacketOIMode, false},
		{"43", 0, true},
		{"speed", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePacketID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePacketID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePacketID() = %d, want %d", got, tt.want)
			}
		})
	}
}
