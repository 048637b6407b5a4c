// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recording stores sensor stream frames in a CBOR log.
//
// A log is a sequence of CBOR data items: one Header followed by one
// Entry per frame. Entries keep the raw frame bytes so a replay runs them
// through the same stream decoder a live session uses.
package recording

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/Thermoquad/oistat/pkg/oi"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// Extension is the file extension Create uses.
const Extension = ".oirec"

// Header opens every log.
type Header struct {
	Version  int       `cbor:"1,keyasint"`
	Session  string    `cbor:"2,keyasint"`
	Started  time.Time `cbor:"3,keyasint"`
	BaudCode int       `cbor:"4,keyasint"`
	Packets  []uint8   `cbor:"5,keyasint"`
}

// Subscription returns the packet ids the log was recorded with.
func (h *Header) Subscription() []oi.PacketID {
	ids := make([]oi.PacketID, len(h.Packets))
	for i, p := range h.Packets {
		ids[i] = oi.PacketID(p)
	}
	return ids
}

// Entry is one recorded frame.
type Entry struct {
	Offset time.Duration `cbor:"1,keyasint"` // since Header.Started
	Raw    []byte        `cbor:"2,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Writer appends frames to a log.
type Writer struct {
	buf    *bufio.Writer
	enc    *cbor.Encoder
	closer io.Closer
	header Header
	count  int
}

// NewWriter writes a header for the subscription to w. If w is an
// io.Closer, Close closes it.
func NewWriter(w io.Writer, subscription []oi.PacketID, baudCode int) (*Writer, error) {
	return newWriter(w, uuid.New(), subscription, baudCode)
}

func newWriter(w io.Writer, session uuid.UUID, subscription []oi.PacketID, baudCode int) (*Writer, error) {
	if len(subscription) == 0 {
		return nil, oi.ErrNoStream
	}

	packets := make([]uint8, len(subscription))
	for i, id := range subscription {
		if !id.Valid() {
			return nil, fmt.Errorf("cannot record packet %d", id)
		}
		packets[i] = uint8(id)
	}

	buf := bufio.NewWriter(w)
	rw := &Writer{
		buf: buf,
		enc: encMode.NewEncoder(buf),
		header: Header{
			Version:  FormatVersion,
			Session:  session.String(),
			Started:  time.Now(),
			BaudCode: baudCode,
			Packets:  packets,
		},
	}
	if c, ok := w.(io.Closer); ok {
		rw.closer = c
	}

	if err := rw.enc.Encode(&rw.header); err != nil {
		return nil, fmt.Errorf("failed to write recording header: %w", err)
	}
	return rw, nil
}

// Create opens a new log in dir named after the session id.
func Create(dir string, subscription []oi.PacketID, baudCode int) (*Writer, string, error) {
	id := uuid.New()
	path := filepath.Join(dir, fmt.Sprintf("oistat-%s-%s%s",
		time.Now().Format("20060102-150405"), id.String()[:8], Extension))

	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create recording: %w", err)
	}
	w, err := newWriter(f, id, subscription, baudCode)
	if err != nil {
		return nil, "", multierr.Append(err, f.Close())
	}
	return w, path, nil
}

// Header returns the header written for this log.
func (w *Writer) Header() Header {
	return w.header
}

// Count returns the number of frames written.
func (w *Writer) Count() int {
	return w.count
}

// Write appends one frame.
func (w *Writer) Write(f *oi.Frame) error {
	if f == nil || len(f.Raw) == 0 {
		return errors.New("cannot record a frame without raw bytes")
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := Entry{Offset: ts.Sub(w.header.Started), Raw: f.Raw}
	if err := w.enc.Encode(&entry); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Close flushes buffered entries and closes the underlying writer.
func (w *Writer) Close() error {
	err := w.buf.Flush()
	if w.closer != nil {
		err = multierr.Append(err, w.closer.Close())
	}
	return err
}

// Reader replays a log.
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
	header Header
	stream *oi.StreamDecoder
}

// NewReader reads the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	rr := &Reader{dec: cbor.NewDecoder(bufio.NewReader(r))}
	if c, ok := r.(io.Closer); ok {
		rr.closer = c
	}

	if err := rr.dec.Decode(&rr.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty recording")
		}
		return nil, fmt.Errorf("failed to read recording header: %w", err)
	}
	if rr.header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported recording version %d", rr.header.Version)
	}
	ids := rr.header.Subscription()
	for _, id := range ids {
		if !id.Valid() {
			return nil, fmt.Errorf("recording subscribes to invalid packet %d", id)
		}
	}
	rr.stream = oi.NewStreamDecoder(ids)
	return rr, nil
}

// Open opens the log at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return r, nil
}

// Header returns the log header.
func (r *Reader) Header() Header {
	return r.header
}

// Next decodes the next frame. It returns io.EOF after the last entry.
// Frames that fail to decode are returned as errors and the reader
// stays usable.
func (r *Reader) Next() (*oi.Frame, error) {
	var entry Entry
	if err := r.dec.Decode(&entry); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	r.stream.Reset()
	frames, err := r.stream.Decode(entry.Raw)
	if err != nil {
		return nil, err
	}
	if len(frames) != 1 {
		return nil, &oi.FramingError{Expected: 1, Got: len(frames), Reason: "recorded entry is not one frame"}
	}
	f := frames[0]
	f.Timestamp = r.header.Started.Add(entry.Offset)
	return f, nil
}

// Frames iterates over the remaining frames. The sequence ends at the
// end of the log or at the first read error; frame decode errors are
// yielded and iteration continues.
func (r *Reader) Frames() iter.Seq2[*oi.Frame, error] {
	return func(yield func(*oi.Frame, error) bool) {
		for {
			f, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil && !oi.IsFraming(err) {
				yield(nil, err)
				return
			}
			if !yield(f, err) {
				return
			}
		}
	}
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
