// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"slices"
	"sync"
)

// SongStore mirrors the vehicle's 16 song slots.
type SongStore struct {
	mu    sync.RWMutex
	slots [MaxSongs][]Note
}

// NewSongStore creates a store with every slot undefined.
func NewSongStore() *SongStore {
	return &SongStore{}
}

// Define validates a song and returns its DefineSong command. The slot is
// recorded immediately; use Prepare and Commit to record only after the
// command was sent.
func (s *SongStore) Define(slot int, notes []Note) (DefineSong, error) {
	cmd, err := s.Prepare(slot, notes)
	if err != nil {
		return DefineSong{}, err
	}
	s.Commit(cmd)
	return cmd, nil
}

// Prepare validates a song without touching the store.
func (s *SongStore) Prepare(slot int, notes []Note) (DefineSong, error) {
	if err := validateSong(slot, notes); err != nil {
		return DefineSong{}, err
	}
	return DefineSong{Slot: slot, Notes: slices.Clone(notes)}, nil
}

// Commit records a validated song, replacing whatever the slot held.
func (s *SongStore) Commit(cmd DefineSong) {
	s.mu.Lock()
	s.slots[cmd.Slot] = slices.Clone(cmd.Notes)
	s.mu.Unlock()
}

// Play returns the PlaySong command for slot. Only the slot number is
// checked; the vehicle ignores slots that were never defined.
func (s *SongStore) Play(slot int) (PlaySong, error) {
	if err := validateSlot(slot); err != nil {
		return PlaySong{}, err
	}
	return PlaySong{Slot: slot}, nil
}

// IsDefined reports whether slot holds a song.
func (s *SongStore) IsDefined(slot int) bool {
	if validateSlot(slot) != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[slot] != nil
}

// Song returns a copy of the notes stored in slot.
func (s *SongStore) Song(slot int) ([]Note, bool) {
	if validateSlot(slot) != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.slots[slot]
	return slices.Clone(n), n != nil
}

// Clear forgets every slot, as after a reset or power loss.
func (s *SongStore) Clear() {
	s.mu.Lock()
	s.slots = [MaxSongs][]Note{}
	s.mu.Unlock()
}

// Duration returns how long a song plays, in 1/64 second units.
func Duration(notes []Note) int {
	total := 0
	for _, n := range notes {
		total += n.Duration
	}
	return total
}
