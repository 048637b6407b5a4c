// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeInt16(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		r       Range
		want    []byte
		wantErr bool
	}{
		{"zero", 0, RangeInt16, []byte{0x00, 0x00}, false},
		{"positive", 500, RangeVelocity, []byte{0x01, 0xF4}, false},
		{"negative", -200, RangeVelocity, []byte{0xFF, 0x38}, false},
		{"minus one", -1, RangeRadius, []byte{0xFF, 0xFF}, false},
		{"straight", RadiusStraight, RangeRadius, []byte{0x80, 0x00}, false},
		{"int16 min", -32768, RangeInt16, []byte{0x80, 0x00}, false},
		{"int16 max", 32767, RangeInt16, []byte{0x7F, 0xFF}, false},
		{"velocity too fast", 501, RangeVelocity, nil, true},
		{"radius just outside", 2001, RangeRadius, nil, true},
		{"radius 32767 not special", 32767, RangeRadius, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeInt16(tt.value, tt.r)
			if tt.wantErr {
				var re *RangeError
				if !errors.As(err, &re) {
					t.Fatalf("EncodeInt16() error = %v, want RangeError", err)
				}
				if re.Value != tt.value {
					t.Errorf("RangeError.Value = %d, want %d", re.Value, tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeInt16() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EncodeInt16() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeInt16(t *testing.T) {
	for _, v := range []int{-32768, -500, -1, 0, 1, 255, 256, 32767} {
		b, err := EncodeInt16(v, RangeInt16)
		if err != nil {
			t.Fatalf("EncodeInt16(%d) error = %v", v, err)
		}
		got, err := DecodeInt16(b)
		if err != nil {
			t.Fatalf("DecodeInt16(%X) error = %v", b, err)
		}
		if int(got) != v {
			t.Errorf("DecodeInt16(EncodeInt16(%d)) = %d", v, got)
		}
	}

	if _, err := DecodeInt16([]byte{1}); !IsFraming(err) {
		t.Errorf("DecodeInt16(1 byte) error = %v, want framing error", err)
	}
}

func TestDecodeUint16(t *testing.T) {
	got, err := DecodeUint16([]byte{0xFF, 0xFE})
	if err != nil {
		t.Fatal(err)
	}
	if got != 65534 {
		t.Errorf("DecodeUint16() = %d, want 65534", got)
	}
	if _, err := DecodeUint16(nil); !IsFraming(err) {
		t.Errorf("DecodeUint16(nil) error = %v, want framing error", err)
	}
}

func TestEncodeUint8(t *testing.T) {
	if b, err := EncodeUint8(255, RangeUint8); err != nil || b != 0xFF {
		t.Errorf("EncodeUint8(255) = %02X, %v", b, err)
	}
	if _, err := EncodeUint8(256, RangeUint8); err == nil {
		t.Error("EncodeUint8(256) succeeded")
	}
	if _, err := EncodeUint8(-1, RangeUint8); err == nil {
		t.Error("EncodeUint8(-1) succeeded")
	}
	if _, err := EncodeUint8(12, baudRange); err == nil {
		t.Error("EncodeUint8(12, baud) succeeded")
	}
}

func TestRangeString(t *testing.T) {
	if got := RangeRadius.String(); got != "[-2000,2000] or {32768}" {
		t.Errorf("RangeRadius.String() = %q", got)
	}
	if got := RangeVelocity.String(); got != "[-500,500]" {
		t.Errorf("RangeVelocity.String() = %q", got)
	}
}
