// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"slices"
	"time"
)

// Decoder states
const (
	stateIdle = iota
	stateLength
	stateBody
	stateChecksum
)

// Frame is one decoded stream frame.
type Frame struct {
	Timestamp time.Time
	Readings  []Reading
	Raw       []byte
}

// Value returns the reading for id and whether the frame carried it.
func (f *Frame) Value(id PacketID) (int, bool) {
	for _, r := range f.Readings {
		if r.ID == id {
			return r.Value, true
		}
	}
	return 0, false
}

// StreamDecoder implements the stream frame state machine:
//
//	[19][N][id][data...]...[id][data...][checksum]
//
// where the low byte of the sum of every frame byte is zero. Bytes before
// a header are skipped; after any error the decoder waits for the next
// header.
type StreamDecoder struct {
	state    int
	length   int
	body     []byte
	raw      []byte
	expected []PacketID

	// body length implied by expected, 0 when unknown
	bodyLen int
}

// NewStreamDecoder creates a decoder. With expected set, frames whose ids
// differ from the subscription are rejected as framing errors, and so is a
// length byte that does not match it.
func NewStreamDecoder(expected []PacketID) *StreamDecoder {
	d := &StreamDecoder{
		state:    stateIdle,
		body:     make([]byte, 0, 255),
		raw:      make([]byte, 0, 258),
		expected: slices.Clone(expected),
	}
	if w, err := ExpectedWidth(expected); err == nil && len(expected) > 0 && len(expected)+w <= 255 {
		d.bodyLen = len(expected) + w
	}
	return d
}

// Reset returns the decoder to idle.
func (d *StreamDecoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.body = d.body[:0]
	d.raw = d.raw[:0]
}

// DecodeByte feeds one byte through the state machine. It returns a frame
// when the checksum byte completes one, nil while a frame is incomplete,
// and an error when the frame is rejected.
func (d *StreamDecoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		if b == StreamHeader {
			d.raw = append(d.raw[:0], b)
			d.state = stateLength
		}
		return nil, nil

	case stateLength:
		if b == 0 {
			d.Reset()
			return nil, &FramingError{Reason: "zero length stream frame"}
		}
		if d.bodyLen > 0 && int(b) != d.bodyLen {
			// the header was a stray byte; b may start the real frame
			d.Reset()
			if b == StreamHeader {
				d.raw = append(d.raw, b)
				d.state = stateLength
			}
			return nil, &FramingError{Expected: d.bodyLen, Got: int(b), Reason: fmt.Sprintf("frame length %d, subscription needs %d", b, d.bodyLen)}
		}
		d.raw = append(d.raw, b)
		d.length = int(b)
		d.body = d.body[:0]
		d.state = stateBody
		return nil, nil

	case stateBody:
		d.raw = append(d.raw, b)
		d.body = append(d.body, b)
		if len(d.body) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		d.raw = append(d.raw, b)
		defer d.Reset()

		var sum byte
		for _, x := range d.raw {
			sum += x
		}
		if sum != 0 {
			return nil, &ChecksumError{Sum: sum}
		}

		readings, ids, err := parseFrameBody(d.body)
		if err != nil {
			return nil, err
		}
		if d.expected != nil && !slices.Equal(ids, d.expected) {
			return nil, &FramingError{Reason: fmt.Sprintf("frame ids %v do not match subscription %v", ids, d.expected)}
		}
		return &Frame{
			Timestamp: time.Now(),
			Readings:  readings,
			Raw:       slices.Clone(d.raw),
		}, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid decoder state: %d", d.state)
	}
}

// Decode feeds a buffer through DecodeByte and returns every complete
// frame. Decoding stops at the first error.
func (d *StreamDecoder) Decode(data []byte) ([]*Frame, error) {
	var frames []*Frame
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			return frames, err
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, nil
}

// parseFrameBody splits (id, data...) pairs and returns the readings and
// the ids in frame order.
func parseFrameBody(body []byte) ([]Reading, []PacketID, error) {
	var readings []Reading
	var ids []PacketID
	for i := 0; i < len(body); {
		id := PacketID(body[i])
		w, err := WidthOf(id)
		if err != nil {
			return nil, nil, &FramingError{Reason: fmt.Sprintf("unknown packet id %d at offset %d", id, i)}
		}
		i++
		if i+w > len(body) {
			return nil, nil, &FramingError{Expected: i + w, Got: len(body), Reason: fmt.Sprintf("packet %s truncated", id)}
		}
		r, err := Decode(id, body[i:i+w])
		if err != nil {
			return nil, nil, err
		}
		readings = append(readings, r...)
		ids = append(ids, id)
		i += w
	}
	return readings, ids, nil
}

// EncodeFrame builds a stream frame from readings grouped by ids. It is
// the inverse of StreamDecoder and is used by emulators and tests.
func EncodeFrame(ids []PacketID, readings []Reading) ([]byte, error) {
	body := make([]byte, 0, 64)
	next := 0
	for _, id := range ids {
		if !id.Valid() {
			return nil, &FieldRangeError{Field: "packet", Value: int(id), Allowed: packetRange.String()}
		}
		body = append(body, byte(id))
		for _, m := range Members(id) {
			if next >= len(readings) || readings[next].ID != m {
				return nil, fmt.Errorf("missing reading for packet %s", m)
			}
			body = appendReading(body, readings[next])
			next++
		}
	}
	if len(body) > 255 {
		return nil, &FramingError{Expected: 255, Got: len(body), Reason: "stream frame body exceeds 255 bytes"}
	}

	frame := make([]byte, 0, len(body)+3)
	frame = append(frame, StreamHeader, byte(len(body)))
	frame = append(frame, body...)
	var sum byte
	for _, x := range frame {
		sum += x
	}
	return append(frame, ^sum+1), nil
}

func appendReading(dst []byte, r Reading) []byte {
	if packets[r.ID-firstSingle].width == 1 {
		return append(dst, byte(r.Value))
	}
	u := uint16(r.Value)
	return append(dst, byte(u>>8), byte(u))
}
