// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"strings"
)

// Range is an inclusive numeric range plus optional out-of-range special
// values (for example RadiusStraight).
type Range struct {
	Min   int
	Max   int
	Extra []int
}

// Common ranges
var (
	RangeUint8    = Range{Min: 0, Max: 255}
	RangeInt16    = Range{Min: -32768, Max: 32767}
	RangeUint16   = Range{Min: 0, Max: 65535}
	RangeVelocity = Range{Min: -MaxVelocity, Max: MaxVelocity}
	RangeRadius   = Range{Min: -MaxRadius, Max: MaxRadius, Extra: []int{RadiusStraight}}
)

// Contains reports whether v is inside the range or one of its extras.
func (r Range) Contains(v int) bool {
	if v >= r.Min && v <= r.Max {
		return true
	}
	for _, x := range r.Extra {
		if v == x {
			return true
		}
	}
	return false
}

func (r Range) String() string {
	s := fmt.Sprintf("[%d,%d]", r.Min, r.Max)
	if len(r.Extra) == 0 {
		return s
	}
	extras := make([]string, len(r.Extra))
	for i, x := range r.Extra {
		extras[i] = fmt.Sprint(x)
	}
	return s + " or {" + strings.Join(extras, ",") + "}"
}

// EncodeInt16 encodes v as two bytes, high byte first, in two's complement.
// Values above 32767 (allowed only through Range.Extra or an unsigned range)
// are sent as their 16-bit pattern.
func EncodeInt16(v int, r Range) ([]byte, error) {
	if !r.Contains(v) {
		return nil, &RangeError{Value: v, Range: r}
	}
	if v < -32768 || v > 65535 {
		return nil, &RangeError{Value: v, Range: Range{Min: -32768, Max: 65535}}
	}
	u := uint16(v)
	return []byte{byte(u >> 8), byte(u)}, nil
}

// DecodeInt16 decodes two big-endian bytes as a signed value.
func DecodeInt16(b []byte) (int16, error) {
	if len(b) != 2 {
		return 0, &FramingError{Expected: 2, Got: len(b)}
	}
	return int16(uint16(b[0])<<8 | uint16(b[1])), nil
}

// DecodeUint16 decodes two big-endian bytes as an unsigned value.
func DecodeUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, &FramingError{Expected: 2, Got: len(b)}
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// EncodeUint8 range-checks v and returns it as one byte.
func EncodeUint8(v int, r Range) (byte, error) {
	if !r.Contains(v) || v < 0 || v > 255 {
		return 0, &RangeError{Value: v, Range: r}
	}
	return byte(v), nil
}

// field wraps codec errors with the command field name.
func field(name string, v int, r Range, err error) error {
	if err == nil {
		return nil
	}
	return &FieldRangeError{Field: name, Value: v, Allowed: r.String(), Err: err}
}

func int16Field(dst []byte, name string, v int, r Range) ([]byte, error) {
	b, err := EncodeInt16(v, r)
	if err != nil {
		return nil, field(name, v, r, err)
	}
	return append(dst, b...), nil
}

func uint8Field(dst []byte, name string, v int, r Range) ([]byte, error) {
	b, err := EncodeUint8(v, r)
	if err != nil {
		return nil, field(name, v, r, err)
	}
	return append(dst, b), nil
}
