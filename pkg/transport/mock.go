// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"io"
	"sync"
)

// MockConn implements Conn for testing. Reads drain ReadData; once it is
// empty Read reports a timeout, or io.EOF when EOFWhenEmpty is set.
type MockConn struct {
	mu sync.Mutex

	ReadData     []byte
	ReadErr      error
	WriteData    []byte
	WriteErr     error
	Closed       bool
	EOFWhenEmpty bool
	Flushes      int

	// OnWrite runs after every successful write, without the lock held,
	// so it may Feed a reply.
	OnWrite func(p []byte)

	// ReadFunc allows custom read behavior for complex tests
	ReadFunc func(p []byte) (int, error)
}

func (m *MockConn) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	if n == 0 && m.EOFWhenEmpty {
		return 0, io.EOF
	}
	return n, nil
}

func (m *MockConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.WriteErr != nil {
		m.mu.Unlock()
		return 0, m.WriteErr
	}
	m.WriteData = append(m.WriteData, p...)
	onWrite := m.OnWrite
	m.mu.Unlock()

	if onWrite != nil {
		onWrite(p)
	}
	return len(p), nil
}

// Flush discards unread ReadData.
func (m *MockConn) Flush() error {
	m.mu.Lock()
	m.ReadData = nil
	m.Flushes++
	m.mu.Unlock()
	return nil
}

func (m *MockConn) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Feed appends bytes for later reads.
func (m *MockConn) Feed(p []byte) {
	m.mu.Lock()
	m.ReadData = append(m.ReadData, p...)
	m.mu.Unlock()
}

// Written returns a copy of everything written so far.
func (m *MockConn) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.WriteData...)
}
