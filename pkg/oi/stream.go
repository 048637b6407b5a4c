// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"slices"
	"sync"
	"time"
)

// StreamManager holds the connection's stream subscription. A new
// subscription always replaces the previous one; pausing keeps the list.
type StreamManager struct {
	mu         sync.RWMutex
	ids        []PacketID
	paused     bool
	generation uint64
}

// NewStreamManager creates a manager with no subscription.
func NewStreamManager() *StreamManager {
	return &StreamManager{}
}

// SetSubscription validates ids and returns the StartStream command for
// them. The stored list is replaced only after every id has been checked,
// so a failed call leaves the previous subscription in place.
func (m *StreamManager) SetSubscription(ids []PacketID) (StartStream, error) {
	cmd := StartStream{Packets: slices.Clone(ids)}
	if _, err := cmd.payload(); err != nil {
		return StartStream{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(cmd.Packets)
	return cmd, nil
}

func (m *StreamManager) setLocked(ids []PacketID) {
	m.ids = ids
	m.paused = false
	m.generation++
}

// Pause returns the command that pauses the stream and marks it paused.
func (m *StreamManager) Pause() PauseResumeStream {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
	return PauseResumeStream{Resume: false}
}

// Resume returns the command that resumes the stream and clears the
// paused flag.
func (m *StreamManager) Resume() PauseResumeStream {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	return PauseResumeStream{Resume: true}
}

// Subscription returns a copy of the subscribed ids, nil if none.
func (m *StreamManager) Subscription() []PacketID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.ids)
}

// Active reports whether a subscription exists.
func (m *StreamManager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids) > 0
}

// Paused reports whether the stream is paused.
func (m *StreamManager) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Generation increases each time the subscription is replaced or cleared.
// Frame readers use it to notice that their subscription is gone.
func (m *StreamManager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Clear drops the subscription, as after a reset or power loss.
func (m *StreamManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = nil
	m.paused = false
	m.generation++
}

// FrameSize returns the number of bytes in one stream frame for ids:
// header, length, one id byte plus data per entry, and the checksum.
func FrameSize(ids []PacketID) (int, error) {
	data, err := ExpectedWidth(ids)
	if err != nil {
		return 0, err
	}
	return 3 + len(ids) + data, nil
}

// FrameTime returns how long one frame takes on the wire at a SetBaud
// code, assuming 10 bits per byte (8N1).
func FrameTime(ids []PacketID, baudCode int) (time.Duration, error) {
	size, err := FrameSize(ids)
	if err != nil {
		return 0, err
	}
	rate, ok := BaudRate(baudCode)
	if !ok {
		return 0, &FieldRangeError{Field: "baud", Value: baudCode, Allowed: baudRange.String()}
	}
	return time.Duration(size*10) * time.Second / time.Duration(rate), nil
}

// CheckCadence reports whether a frame for ids can be sent within one
// 15ms stream period at the given baud code. The vehicle does not reject
// oversized subscriptions; it falls behind instead.
func CheckCadence(ids []PacketID, baudCode int) (bool, time.Duration, error) {
	d, err := FrameTime(ids, baudCode)
	if err != nil {
		return false, 0, err
	}
	return d <= StreamPeriodMs*time.Millisecond, d, nil
}
