// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport carries Open Interface bytes over a serial port or a
// serial-over-WebSocket bridge.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/Thermoquad/oistat/pkg/oi"
)

// Conn is a byte connection to the vehicle. Read returns (0, nil) when the
// read timeout expires without data.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Error is returned by Link for failed reads and writes.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a read timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, oi.ErrTimeout)
}

// Link adapts a Conn to oi.Transport.
type Link struct {
	conn   Conn
	closed atomic.Bool
}

// NewLink wraps conn. The link owns conn and closes it on Close.
func NewLink(conn Conn) *Link {
	return &Link{conn: conn}
}

// Conn returns the wrapped connection.
func (l *Link) Conn() Conn {
	return l.conn
}

// Send writes all of p.
func (l *Link) Send(p []byte) error {
	if l.closed.Load() {
		return &Error{Op: "write", Err: oi.ErrClosed}
	}
	n, err := l.conn.Write(p)
	if err != nil {
		return &Error{Op: "write", Err: err}
	}
	if n != len(p) {
		return &Error{Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

// Receive reads exactly n bytes. It fails with a timeout when the
// connection's read timeout expires before n bytes arrived; bytes read
// until then are discarded, and the caller must Flush before trusting the
// next read.
func (l *Link) Receive(n int) ([]byte, error) {
	if l.closed.Load() {
		return nil, &Error{Op: "read", Err: oi.ErrClosed}
	}
	buf := make([]byte, n)
	got := 0
	for got < n {
		k, err := l.conn.Read(buf[got:])
		got += k
		if err != nil {
			if l.closed.Load() {
				err = oi.ErrClosed
			}
			return nil, &Error{Op: "read", Err: err}
		}
		if k == 0 {
			return nil, &Error{Op: "read", Err: oi.ErrTimeout}
		}
	}
	return buf, nil
}

// Flush discards input the connection has buffered but not yet returned.
// It is a no-op for connections without a Flush method.
func (l *Link) Flush() error {
	if l.closed.Load() {
		return &Error{Op: "flush", Err: oi.ErrClosed}
	}
	f, ok := l.conn.(oi.Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return &Error{Op: "flush", Err: err}
	}
	return nil
}

// Close closes the connection. Further Send and Receive calls fail with
// oi.ErrClosed.
func (l *Link) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.conn.Close()
}
