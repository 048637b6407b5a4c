// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Transport moves bytes to and from the vehicle. Receive returns exactly
// n bytes or an error; it returns an error wrapping ErrTimeout when no
// data arrives within its read timeout.
type Transport interface {
	Send(p []byte) error
	Receive(n int) ([]byte, error)
}

// Flusher is implemented by transports that can discard unread input.
type Flusher interface {
	Flush() error
}

// maxDrain bounds how many stale bytes are read back when the transport
// cannot flush.
const maxDrain = 512

// SessionConfig configures a Session.
type SessionConfig struct {
	Transport Transport
	Logger    *zap.Logger

	// BaudCode is the link rate the vehicle is using, for stream cadence
	// warnings. nil selects DefaultBaudCode.
	BaudCode *int
}

// Session is the single owner of one vehicle connection. Commands are sent
// under one lock held from mode validation through transmission to the
// state update, so bytes of two commands never interleave. Stream reading
// uses a separate lock.
type Session struct {
	cmdMu  sync.Mutex
	readMu sync.Mutex

	transport Transport
	log       *zap.Logger
	baudCode  int

	// set when a reply was cut short; guarded by readMu
	desynced bool
	readers  atomic.Int32

	mode   *ModeMachine
	songs  *SongStore
	stream *StreamManager
}

// NewSession creates a session in ModeOff.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Transport == nil {
		return nil, errors.New("session requires a transport")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	baud := DefaultBaudCode
	if cfg.BaudCode != nil {
		if _, ok := BaudRate(*cfg.BaudCode); !ok {
			return nil, &FieldRangeError{Field: "baud", Value: *cfg.BaudCode, Allowed: baudRange.String()}
		}
		baud = *cfg.BaudCode
	}
	return &Session{
		transport: cfg.Transport,
		log:       log,
		baudCode:  baud,
		mode:      NewModeMachine(),
		songs:     NewSongStore(),
		stream:    NewStreamManager(),
	}, nil
}

// Mode returns the tracked vehicle mode.
func (s *Session) Mode() Mode {
	return s.mode.Current()
}

// Songs returns the song store. Songs sent through the session are
// recorded there after transmission.
func (s *Session) Songs() *SongStore {
	return s.songs
}

// Stream returns the stream subscription state.
func (s *Session) Stream() *StreamManager {
	return s.stream
}

// Send validates, encodes and transmits one command, then applies its
// effect on mode, songs or stream subscription. Transport errors are
// returned unchanged and leave the state untouched.
func (s *Session) Send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.sendLocked(cmd)
}

// SendAll sends commands back to back without letting other commands in
// between. It stops at the first error.
func (s *Session) SendAll(ctx context.Context, cmds ...Command) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sendLocked(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) sendLocked(cmd Command) error {
	current := s.mode.Current()
	data, err := Encode(cmd, current)
	if err != nil {
		s.log.Debug("command rejected",
			zap.String("command", FormatOpcode(cmd.Opcode())),
			zap.Stringer("mode", current),
			zap.Error(err))
		return err
	}

	if start, ok := cmd.(StartStream); ok {
		s.checkCadence(start.Packets)
	}

	if err := s.transport.Send(data); err != nil {
		return err
	}
	s.log.Debug("command sent",
		zap.String("command", FormatCommand(cmd)),
		zap.String("bytes", FormatBytes(data)))

	s.applyLocked(cmd, current)
	return nil
}

func (s *Session) applyLocked(cmd Command, before Mode) {
	if s.mode.Apply(cmd) {
		s.log.Info("mode changed",
			zap.Stringer("from", before),
			zap.Stringer("to", s.mode.Current()))
	}

	switch c := cmd.(type) {
	case DefineSong:
		s.songs.Commit(c)
	case StartStream:
		// already validated by Encode
		_, _ = s.stream.SetSubscription(c.Packets)
	case PauseResumeStream:
		if c.Resume {
			s.stream.Resume()
		} else {
			s.stream.Pause()
		}
	case SetBaud:
		s.baudCode = c.Code
		s.log.Info("baud rate changed; wait 100ms before the next command", zap.Int("code", c.Code))
	case Reset:
		s.songs.Clear()
		s.stream.Clear()
	}
}

func (s *Session) checkCadence(ids []PacketID) {
	ok, d, err := CheckCadence(ids, s.baudCode)
	if err != nil || ok {
		return
	}
	rate, _ := BaudRate(s.baudCode)
	s.log.Warn("stream frame does not fit the 15ms period",
		zap.Int("baud", rate),
		zap.Duration("frame_time", d))
}

// WakeAcknowledged records an external wake signal confirmed by the
// transport. The vehicle moves from Off or Sleeping to Passive.
func (s *Session) WakeAcknowledged() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.mode.Wake() {
		s.log.Info("wake acknowledged", zap.Stringer("mode", ModePassive))
	}
}

// PowerLost records loss of vehicle power. Songs and the stream
// subscription are forgotten.
func (s *Session) PowerLost() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.mode.PowerLost()
	s.songs.Clear()
	s.stream.Clear()
	s.log.Info("power lost", zap.Stringer("mode", ModeOff))
}

// Start sends Start.
func (s *Session) Start(ctx context.Context) error {
	return s.Send(ctx, Start{})
}

// Safe moves the vehicle from full to safe mode.
func (s *Session) Safe(ctx context.Context) error {
	return s.Send(ctx, SafeMode{})
}

// Full moves the vehicle from safe to full mode.
func (s *Session) Full(ctx context.Context) error {
	return s.Send(ctx, FullMode{})
}

// Drive sends a Drive command.
func (s *Session) Drive(ctx context.Context, velocity, radius int) error {
	return s.Send(ctx, Drive{Velocity: velocity, Radius: radius})
}

// DriveDirect sends a DriveDirect command.
func (s *Session) DriveDirect(ctx context.Context, right, left int) error {
	return s.Send(ctx, DriveDirect{Right: right, Left: left})
}

// Stop sets both wheel velocities to zero.
func (s *Session) Stop(ctx context.Context) error {
	return s.DriveDirect(ctx, 0, 0)
}

// DefineSong validates and sends a song. The store is updated only after
// the command was transmitted.
func (s *Session) DefineSong(ctx context.Context, slot int, notes []Note) error {
	cmd, err := s.songs.Prepare(slot, notes)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

// PlaySong plays a slot, defined or not.
func (s *Session) PlaySong(ctx context.Context, slot int) error {
	cmd, err := s.songs.Play(slot)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

// Subscribe replaces the stream subscription. Frame sequences started for
// an older subscription end.
func (s *Session) Subscribe(ctx context.Context, ids []PacketID) error {
	return s.Send(ctx, StartStream{Packets: ids})
}

// Pause pauses the stream, keeping its packet list.
func (s *Session) Pause(ctx context.Context) error {
	return s.Send(ctx, PauseResumeStream{Resume: false})
}

// Resume resumes a paused stream.
func (s *Session) Resume(ctx context.Context) error {
	return s.Send(ctx, PauseResumeStream{Resume: true})
}

// Query requests one packet or group and decodes the response.
func (s *Session) Query(ctx context.Context, id PacketID) ([]Reading, error) {
	return s.query(ctx, RequestSensor{Packet: id}, []PacketID{id})
}

// QueryList requests several packets in one round trip.
func (s *Session) QueryList(ctx context.Context, ids []PacketID) ([]Reading, error) {
	return s.query(ctx, RequestSensorList{Packets: ids}, ids)
}

func (s *Session) query(ctx context.Context, cmd Command, ids []PacketID) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width, err := ExpectedWidth(ids)
	if err != nil {
		return nil, err
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.stream.Active() && !s.stream.Paused() {
		return nil, ErrStreamActive
	}
	if s.readers.Load() > 0 {
		return nil, ErrReaderActive
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()
	if err := s.resyncLocked(); err != nil {
		return nil, err
	}
	if err := s.sendLocked(cmd); err != nil {
		return nil, err
	}

	data, err := s.transport.Receive(width)
	if err != nil {
		// part of the reply may still arrive and would be read as the
		// start of the next one
		s.desynced = true
		return nil, fmt.Errorf("read %s response: %w", FormatOpcode(cmd.Opcode()), err)
	}
	return DecodeList(ids, data)
}

// resyncLocked discards input left over from a reply that was cut short.
// Transports without Flush are read until they time out.
func (s *Session) resyncLocked() error {
	if !s.desynced {
		return nil
	}
	if f, ok := s.transport.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
		s.desynced = false
		s.log.Debug("input flushed after short reply")
		return nil
	}

	for n := 0; n < maxDrain; n++ {
		_, err := s.transport.Receive(1)
		if errors.Is(err, ErrTimeout) {
			s.desynced = false
			s.log.Debug("input drained after short reply", zap.Int("bytes", n))
			return nil
		}
		if err != nil {
			return err
		}
	}
	return &FramingError{Got: maxDrain, Reason: "input did not go quiet after a short reply"}
}

// SendUnchecked transmits cmd without the mode check, under the same lock
// as Send. Field ranges are still validated. The session state is not
// updated, so the tracked mode stays where it was.
func (s *Session) SendUnchecked(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(cmd)
	if err != nil {
		return err
	}
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if err := s.transport.Send(data); err != nil {
		return err
	}
	s.log.Debug("command sent unchecked",
		zap.String("command", FormatCommand(cmd)),
		zap.Stringer("tracked_mode", s.mode.Current()))
	return nil
}

// Frames returns the decoded stream frames for the current subscription.
// The sequence is lazy and ends when ctx is done, the subscription is
// replaced or cleared, the transport fails, or the caller stops. Decoder
// errors are yielded and reading continues at the next header. Read
// timeouts are retried silently. Query fails with ErrReaderActive while a
// sequence is being ranged over.
func (s *Session) Frames(ctx context.Context) iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		s.readers.Add(1)
		defer s.readers.Add(-1)

		gen := s.stream.Generation()
		ids := s.stream.Subscription()
		if len(ids) == 0 {
			yield(nil, ErrNoStream)
			return
		}
		dec := NewStreamDecoder(ids)

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if s.stream.Generation() != gen {
				return
			}

			s.readMu.Lock()
			b, err := s.transport.Receive(1)
			s.readMu.Unlock()
			if err != nil {
				if errors.Is(err, ErrTimeout) {
					continue
				}
				yield(nil, err)
				return
			}

			frame, err := dec.DecodeByte(b[0])
			if err != nil {
				s.log.Debug("stream frame rejected", zap.Error(err))
				if !yield(nil, err) {
					return
				}
				continue
			}
			if frame != nil && !yield(frame, nil) {
				return
			}
		}
	}
}
