// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"strings"
	"sync"
)

// Mode is the vehicle's operating restriction level.
type Mode int

// Mode values. The zero value is ModeOff.
const (
	ModeOff Mode = iota
	ModePassive
	ModeSafe
	ModeFull
	ModeSleeping
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "OFF"
	case ModePassive:
		return "PASSIVE"
	case ModeSafe:
		return "SAFE"
	case ModeFull:
		return "FULL"
	case ModeSleeping:
		return "SLEEPING"
	default:
		return "UNKNOWN"
	}
}

// ModeSet is a set of modes in which a command is legal.
type ModeSet uint8

// Common mode sets
const (
	AnyMode    = ModeSet(1<<ModeOff | 1<<ModePassive | 1<<ModeSafe | 1<<ModeFull | 1<<ModeSleeping)
	Awake      = ModeSet(1<<ModePassive | 1<<ModeSafe | 1<<ModeFull)
	Controlled = ModeSet(1<<ModeSafe | 1<<ModeFull)
)

// ModesOf builds a ModeSet.
func ModesOf(modes ...Mode) ModeSet {
	var s ModeSet
	for _, m := range modes {
		s |= 1 << m
	}
	return s
}

// Contains reports whether m is in the set.
func (s ModeSet) Contains(m Mode) bool {
	if m < ModeOff || m > ModeSleeping {
		return false
	}
	return s&(1<<m) != 0
}

// Modes returns the members in ascending order.
func (s ModeSet) Modes() []Mode {
	var out []Mode
	for m := ModeOff; m <= ModeSleeping; m++ {
		if s.Contains(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s ModeSet) String() string {
	if s == AnyMode {
		return "ANY"
	}
	names := make([]string, 0, 5)
	for _, m := range s.Modes() {
		names = append(names, m.String())
	}
	return strings.Join(names, "|")
}

// ModeMachine tracks the current vehicle mode for one connection.
// It starts in ModeOff and only moves through Apply, Wake and PowerLost.
type ModeMachine struct {
	mu      sync.RWMutex
	current Mode
}

// NewModeMachine creates a machine in ModeOff.
func NewModeMachine() *ModeMachine {
	return &ModeMachine{current: ModeOff}
}

// Current returns the current mode.
func (m *ModeMachine) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Validate checks that cmd is legal in the current mode.
func (m *ModeMachine) Validate(cmd Command) error {
	return checkMode(cmd, m.Current())
}

// Apply updates the mode for commands that are mode transitions and
// reports whether the mode changed. Other commands leave it untouched.
//
// Demo commands make the vehicle drop to passive on its own; that is not
// tracked here.
func (m *ModeMachine) Apply(cmd Command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transition(cmd, m.current)
	if !ok || next == m.current {
		return false
	}
	m.current = next
	return true
}

// Wake applies an externally acknowledged wake signal. Only Off and
// Sleeping move to Passive.
func (m *ModeMachine) Wake() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != ModeOff && m.current != ModeSleeping {
		return false
	}
	m.current = ModePassive
	return true
}

// PowerLost moves the machine back to ModeOff.
func (m *ModeMachine) PowerLost() {
	m.mu.Lock()
	m.current = ModeOff
	m.mu.Unlock()
}

// transition returns the mode a command leads to from the given mode.
func transition(cmd Command, from Mode) (Mode, bool) {
	switch cmd.(type) {
	case Start:
		return ModePassive, true
	case SafeMode:
		if from == ModeFull {
			return ModeSafe, true
		}
	case FullMode:
		if from == ModeSafe {
			return ModeFull, true
		}
	case Power:
		if from == ModeSafe || from == ModeFull {
			return ModePassive, true
		}
	case Reset:
		// assumed; see Reset
		return ModeOff, true
	}
	return from, false
}

func checkMode(cmd Command, current Mode) error {
	allowed := cmd.Allowed()
	if !allowed.Contains(current) {
		return &ModeViolation{Opcode: cmd.Opcode(), Current: current, Allowed: allowed}
	}
	return nil
}
