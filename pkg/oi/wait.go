// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

var eventRange = Range{Min: minEvent, Max: maxEvent}

// EncodeEvent returns the WaitEvent data byte for an event id. With negate
// set the two's complement of the id is sent, which makes the vehicle wait
// until the event is NOT occurring.
func EncodeEvent(id int, negate bool) (byte, error) {
	b, err := EncodeUint8(id, eventRange)
	if err != nil {
		return 0, field("event", id, eventRange, err)
	}
	if negate {
		return ^b + 1, nil
	}
	return b, nil
}

// DecodeEvent reverses EncodeEvent.
func DecodeEvent(b byte) (id int, negated bool, err error) {
	if eventRange.Contains(int(b)) {
		return int(b), false, nil
	}
	n := ^b + 1
	if eventRange.Contains(int(n)) {
		return int(n), true, nil
	}
	return 0, false, fmt.Errorf("wait event byte 0x%02X is not an event or its negation", b)
}

// WaitFor returns a WaitTime for tenths of a second.
func WaitFor(tenths int) WaitTime {
	return WaitTime{Tenths: tenths}
}

// WaitUntil returns a WaitEvent for the event occurring.
func WaitUntil(event int) WaitEvent {
	return WaitEvent{Event: event}
}

// WaitUntilNot returns a WaitEvent for the event no longer occurring.
func WaitUntilNot(event int) WaitEvent {
	return WaitEvent{Event: event, Negate: true}
}
