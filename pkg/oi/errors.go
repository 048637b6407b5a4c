// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout       = errors.New("timed out waiting for vehicle data")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrTruncated     = errors.New("truncated command")
	ErrClosed        = errors.New("transport closed")
	ErrNoStream      = errors.New("no stream subscription")
	ErrStreamActive  = errors.New("stream is running; pause it before querying")
	ErrReaderActive  = errors.New("a frame sequence is still reading; stop it before querying")
)

// ModeViolation is returned when a command is not legal in the current mode.
type ModeViolation struct {
	Opcode  byte
	Current Mode
	Allowed ModeSet
}

func (e *ModeViolation) Error() string {
	return fmt.Sprintf("%s (%d) not allowed in %s mode (allowed: %s)",
		FormatOpcode(e.Opcode), e.Opcode, e.Current, e.Allowed)
}

// RangeError is returned by the value codec when a value is outside its
// declared range.
type RangeError struct {
	Value int
	Range Range
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %d outside %s", e.Value, e.Range)
}

// FieldRangeError names the command field that failed range validation.
type FieldRangeError struct {
	Field   string
	Value   int
	Allowed string
	Err     error
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf("field %s: value %d outside %s", e.Field, e.Value, e.Allowed)
}

func (e *FieldRangeError) Unwrap() error {
	return e.Err
}

// SlotRangeError is returned for song slots outside 0-15.
type SlotRangeError struct {
	Slot int
}

func (e *SlotRangeError) Error() string {
	return fmt.Sprintf("song slot %d outside 0-%d", e.Slot, MaxSongs-1)
}

// NoteRangeError is returned for a note or duration outside its range.
type NoteRangeError struct {
	Index    int
	Note     int
	Duration int
}

func (e *NoteRangeError) Error() string {
	return fmt.Sprintf("note %d: (note=%d, duration=%d) invalid (note rest or %d-%d, duration 0-255)",
		e.Index, e.Note, e.Duration, MinNote, MaxNote)
}

// CapacityError is returned when a song holds no notes or more than 16.
type CapacityError struct {
	Count int
	Max   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("song has %d notes (must be 1-%d)", e.Count, e.Max)
}

// FramingError means a received buffer does not match the layout that was
// requested. The stream should be treated as desynchronized.
type FramingError struct {
	Expected int
	Got      int
	Reason   string
}

func (e *FramingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("framing error: %s", e.Reason)
	}
	return fmt.Sprintf("framing error: expected %d bytes, got %d", e.Expected, e.Got)
}

// ChecksumError is returned for a stream frame whose bytes do not sum to zero.
type ChecksumError struct {
	Sum byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("stream checksum mismatch: frame sums to 0x%02X", e.Sum)
}

// IsModeViolation returns true if err is or wraps a ModeViolation.
func IsModeViolation(err error) bool {
	var mv *ModeViolation
	return errors.As(err, &mv)
}

// IsFraming returns true if err indicates a desynchronized stream.
func IsFraming(err error) bool {
	var fe *FramingError
	var ce *ChecksumError
	return errors.As(err, &fe) || errors.As(err, &ce)
}

// IsInvalidInput returns true for the range and capacity errors that are
// raised before any byte is sent.
func IsInvalidInput(err error) bool {
	var (
		fr *FieldRangeError
		sr *SlotRangeError
		nr *NoteRangeError
		cp *CapacityError
		rg *RangeError
	)
	return errors.As(err, &fr) || errors.As(err, &sr) || errors.As(err, &nr) ||
		errors.As(err, &cp) || errors.As(err, &rg)
}
