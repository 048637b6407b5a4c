// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recording

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/Thermoquad/oistat/pkg/oi"
)

var testSubscription = []oi.PacketID{oi.PacketDistance, oi.PacketVoltage}

func testFrame(t *testing.T, distance, voltage int, at time.Time) *oi.Frame {
	t.Helper()
	readings := []oi.Reading{
		{ID: oi.PacketDistance, Value: distance},
		{ID: oi.PacketVoltage, Value: voltage},
	}
	raw, err := oi.EncodeFrame(testSubscription, readings)
	if err != nil {
		t.Fatal(err)
	}
	return &oi.Frame{Timestamp: at, Readings: readings, Raw: raw}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testSubscription, oi.DefaultBaudCode)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	start := w.Header().Started

	frames := []*oi.Frame{
		testFrame(t, 10, 15000, start.Add(15*time.Millisecond)),
		testFrame(t, -4, 14990, start.Add(30*time.Millisecond)),
		testFrame(t, 0, 14985, start.Add(45*time.Millisecond)),
	}
	for _, f := range frames {
		if err := w.Write(f); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if w.Count() != len(frames) {
		t.Errorf("Count() = %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	h := r.Header()
	if _, err := uuid.Parse(h.Session); err != nil {
		t.Errorf("Session %q is not a uuid: %v", h.Session, err)
	}
	if h.BaudCode != oi.DefaultBaudCode {
		t.Errorf("BaudCode = %d", h.BaudCode)
	}
	if diff := cmp.Diff(testSubscription, h.Subscription()); diff != "" {
		t.Errorf("Subscription() mismatch (-want +got):\n%s", diff)
	}

	var got []*oi.Frame
	for f, err := range r.Frames() {
		if err != nil {
			t.Fatalf("Frames() error = %v", err)
		}
		got = append(got, f)
	}
	if len(got) != len(frames) {
		t.Fatalf("replayed %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if diff := cmp.Diff(frames[i].Readings, got[i].Readings); diff != "" {
			t.Errorf("frame %d readings mismatch (-want +got):\n%s", i, diff)
		}
		if !got[i].Timestamp.Equal(frames[i].Timestamp) {
			t.Errorf("frame %d timestamp = %v, want %v", i, got[i].Timestamp, frames[i].Timestamp)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after end error = %v, want EOF", err)
	}
}

func TestCorruptEntryIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testSubscription, oi.DefaultBaudCode)
	if err != nil {
		t.Fatal(err)
	}
	bad := testFrame(t, 1, 2, time.Now())
	bad.Raw[len(bad.Raw)-1]++
	for _, f := range []*oi.Frame{bad, testFrame(t, 3, 4, time.Now())} {
		if err := w.Write(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var frames, errs int
	for f, err := range r.Frames() {
		if err != nil {
			var ce *oi.ChecksumError
			if !errors.As(err, &ce) {
				t.Errorf("error = %v, want ChecksumError", err)
			}
			errs++
			continue
		}
		if v, _ := f.Value(oi.PacketDistance); v != 3 {
			t.Errorf("distance = %d, want 3", v)
		}
		frames++
	}
	if frames != 1 || errs != 1 {
		t.Errorf("frames, errors = %d, %d; want 1, 1", frames, errs)
	}
}

func TestWriterErrors(t *testing.T) {
	if _, err := NewWriter(io.Discard, nil, oi.DefaultBaudCode); !errors.Is(err, oi.ErrNoStream) {
		t.Errorf("empty subscription error = %v", err)
	}
	if _, err := NewWriter(io.Discard, []oi.PacketID{50}, oi.DefaultBaudCode); err == nil {
		t.Error("invalid packet accepted")
	}

	w, err := NewWriter(io.Discard, testSubscription, oi.DefaultBaudCode)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(&oi.Frame{}); err == nil {
		t.Error("Write() accepted a frame without raw bytes")
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want string
	}{
		{"empty", func(*testing.T) []byte { return nil }, "empty recording"},
		{"garbage", func(*testing.T) []byte { return []byte{0xFF, 0x00} }, "header"},
		{"version", func(t *testing.T) []byte {
			data, err := encMode.Marshal(Header{Version: 99, Packets: []uint8{7}})
			if err != nil {
				t.Fatal(err)
			}
			return data
		}, "unsupported recording version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data(t)))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewReader() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCreateAndOpen(t *testing.T) {
	dir := t.TempDir()
	w, path, err := Create(dir, testSubscription, oi.DefaultBaudCode)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Ext(path) != Extension {
		t.Errorf("path = %s", path)
	}
	if !strings.Contains(path, w.Header().Session[:8]) {
		t.Errorf("path %s does not carry session %s", path, w.Header().Session)
	}
	if err := w.Write(testFrame(t, 5, 15000, time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	if r.Header().Session != w.Header().Session {
		t.Errorf("Session = %s, want %s", r.Header().Session, w.Header().Session)
	}
	if _, err := r.Next(); err != nil {
		t.Errorf("Next() error = %v", err)
	}

	if _, err := Open(filepath.Join(dir, "missing"+Extension)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v", err)
	}
}
