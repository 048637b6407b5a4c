// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

// Command is one Open Interface command. The set of implementations is
// closed: every variant lives in this file and Encode handles all of them.
type Command interface {
	// Opcode returns the command's first wire byte.
	Opcode() byte
	// Allowed returns the modes in which the vehicle accepts the command.
	Allowed() ModeSet

	// payload validates the fields and returns the data bytes.
	payload() ([]byte, error)
}

// Start starts the OI. Must be sent before any other command; leaves the
// vehicle in passive mode.
type Start struct{}

func (Start) Opcode() byte             { return OpStart }
func (Start) Allowed() ModeSet         { return AnyMode }
func (Start) payload() ([]byte, error) { return nil, nil }

// SetBaud changes the vehicle's link rate. Code is 0-11, see BaudRate.
// Sending it only changes the vehicle side: the caller must wait 100ms and
// then switch its own port to the new rate before sending again.
type SetBaud struct {
	Code int
}

func (SetBaud) Opcode() byte     { return OpBaud }
func (SetBaud) Allowed() ModeSet { return Awake }
func (c SetBaud) payload() ([]byte, error) {
	return uint8Field(nil, "baud", c.Code, baudRange)
}

// SafeMode returns the vehicle from full to safe mode.
type SafeMode struct{}

func (SafeMode) Opcode() byte             { return OpSafe }
func (SafeMode) Allowed() ModeSet         { return ModesOf(ModeFull) }
func (SafeMode) payload() ([]byte, error) { return nil, nil }

// FullMode gives unrestricted control. Only accepted from safe mode.
type FullMode struct{}

func (FullMode) Opcode() byte             { return OpFull }
func (FullMode) Allowed() ModeSet         { return ModesOf(ModeSafe) }
func (FullMode) payload() ([]byte, error) { return nil, nil }

// Demo starts one of the built-in demos (0-9) or stops the current one (255).
type Demo struct {
	Demo int
}

func (Demo) Opcode() byte     { return OpDemo }
func (Demo) Allowed() ModeSet { return Awake }
func (c Demo) payload() ([]byte, error) {
	return uint8Field(nil, "demo", c.Demo, Range{Min: DemoCover, Max: DemoBanjo, Extra: []int{DemoStop}})
}

// Cover starts the cover demo without the intro song.
type Cover struct{}

func (Cover) Opcode() byte             { return OpCover }
func (Cover) Allowed() ModeSet         { return Awake }
func (Cover) payload() ([]byte, error) { return nil, nil }

// Spot starts the spot cover demo.
type Spot struct{}

func (Spot) Opcode() byte             { return OpSpot }
func (Spot) Allowed() ModeSet         { return Awake }
func (Spot) payload() ([]byte, error) { return nil, nil }

// CoverAndDock starts the cover demo and docks when the home base is seen.
type CoverAndDock struct{}

func (CoverAndDock) Opcode() byte             { return OpCoverAndDock }
func (CoverAndDock) Allowed() ModeSet         { return Awake }
func (CoverAndDock) payload() ([]byte, error) { return nil, nil }

// Drive sets the average wheel velocity (mm/s) and turn radius (mm).
// Radius RadiusStraight drives straight; -1/1 spin in place.
type Drive struct {
	Velocity int
	Radius   int
}

func (Drive) Opcode() byte     { return OpDrive }
func (Drive) Allowed() ModeSet { return Controlled }
func (c Drive) payload() ([]byte, error) {
	b, err := int16Field(make([]byte, 0, 4), "velocity", c.Velocity, RangeVelocity)
	if err != nil {
		return nil, err
	}
	return int16Field(b, "radius", c.Radius, RangeRadius)
}

// DriveDirect sets each wheel velocity independently (mm/s). The right
// wheel is sent first.
type DriveDirect struct {
	Right int
	Left  int
}

func (DriveDirect) Opcode() byte     { return OpDriveDirect }
func (DriveDirect) Allowed() ModeSet { return Controlled }
func (c DriveDirect) payload() ([]byte, error) {
	b, err := int16Field(make([]byte, 0, 4), "right", c.Right, RangeVelocity)
	if err != nil {
		return nil, err
	}
	return int16Field(b, "left", c.Left, RangeVelocity)
}

// LEDs controls the play and advance LEDs and the bicolor power LED.
// Color 0 is green, 255 red.
type LEDs struct {
	Play      bool
	Advance   bool
	Color     int
	Intensity int
}

func (LEDs) Opcode() byte     { return OpLEDs }
func (LEDs) Allowed() ModeSet { return Controlled }
func (c LEDs) payload() ([]byte, error) {
	var bits byte
	if c.Play {
		bits |= LEDPlay
	}
	if c.Advance {
		bits |= LEDAdvance
	}
	b, err := uint8Field([]byte{bits}, "color", c.Color, RangeUint8)
	if err != nil {
		return nil, err
	}
	return uint8Field(b, "intensity", c.Intensity, RangeUint8)
}

// DigitalOutputs sets the three cargo bay digital outputs (bits 0-2).
type DigitalOutputs struct {
	Bits int
}

func (DigitalOutputs) Opcode() byte     { return OpDigitalOutputs }
func (DigitalOutputs) Allowed() ModeSet { return Controlled }
func (c DigitalOutputs) payload() ([]byte, error) {
	return uint8Field(nil, "outputs", c.Bits, Range{Min: 0, Max: 7})
}

// PWMLowSideDrivers drives the low side drivers with a 0-128 duty cycle.
type PWMLowSideDrivers struct {
	LSD2 int
	LSD1 int
	LSD0 int
}

func (PWMLowSideDrivers) Opcode() byte     { return OpPWMLowSide }
func (PWMLowSideDrivers) Allowed() ModeSet { return Controlled }
func (c PWMLowSideDrivers) payload() ([]byte, error) {
	r := Range{Min: 0, Max: MaxPWMLowSide}
	b, err := uint8Field(make([]byte, 0, 3), "lsd2", c.LSD2, r)
	if err != nil {
		return nil, err
	}
	if b, err = uint8Field(b, "lsd1", c.LSD1, r); err != nil {
		return nil, err
	}
	return uint8Field(b, "lsd0", c.LSD0, r)
}

// LowSideDrivers switches the three low side drivers fully on or off.
type LowSideDrivers struct {
	Bits int
}

func (LowSideDrivers) Opcode() byte     { return OpLowSideDrivers }
func (LowSideDrivers) Allowed() ModeSet { return Controlled }
func (c LowSideDrivers) payload() ([]byte, error) {
	return uint8Field(nil, "drivers", c.Bits, Range{Min: 0, Max: 7})
}

// SendIR transmits one byte through low side driver 1.
type SendIR struct {
	Value int
}

func (SendIR) Opcode() byte     { return OpSendIR }
func (SendIR) Allowed() ModeSet { return Controlled }
func (c SendIR) payload() ([]byte, error) {
	return uint8Field(nil, "ir", c.Value, RangeUint8)
}

// Note is one song note. Number is NoteRest or 31-127, Duration is in
// 1/64 second units.
type Note struct {
	Number   int
	Duration int
}

// DefineSong stores a song of 1-16 notes in slot 0-15.
type DefineSong struct {
	Slot  int
	Notes []Note
}

func (DefineSong) Opcode() byte     { return OpSong }
func (DefineSong) Allowed() ModeSet { return Awake }
func (c DefineSong) payload() ([]byte, error) {
	if err := validateSong(c.Slot, c.Notes); err != nil {
		return nil, err
	}
	b := make([]byte, 0, 2+2*len(c.Notes))
	b = append(b, byte(c.Slot), byte(len(c.Notes)))
	for _, n := range c.Notes {
		b = append(b, byte(n.Number), byte(n.Duration))
	}
	return b, nil
}

// PlaySong plays a song slot. The vehicle ignores slots that were never
// defined, so this always encodes.
type PlaySong struct {
	Slot int
}

func (PlaySong) Opcode() byte     { return OpPlay }
func (PlaySong) Allowed() ModeSet { return Controlled }
func (c PlaySong) payload() ([]byte, error) {
	if err := validateSlot(c.Slot); err != nil {
		return nil, err
	}
	return []byte{byte(c.Slot)}, nil
}

// RequestSensor asks for one packet or packet group.
type RequestSensor struct {
	Packet PacketID
}

func (RequestSensor) Opcode() byte     { return OpSensors }
func (RequestSensor) Allowed() ModeSet { return Awake }
func (c RequestSensor) payload() ([]byte, error) {
	if err := validatePacket("packet", c.Packet); err != nil {
		return nil, err
	}
	return []byte{byte(c.Packet)}, nil
}

// RequestSensorList asks for several packets in one response. The
// response is the packets' data concatenated in request order.
type RequestSensorList struct {
	Packets []PacketID
}

func (RequestSensorList) Opcode() byte     { return OpQueryList }
func (RequestSensorList) Allowed() ModeSet { return Awake }
func (c RequestSensorList) payload() ([]byte, error) {
	return packetListPayload(c.Packets)
}

// StartStream starts a stream of the listed packets every 15ms,
// replacing any previous stream.
type StartStream struct {
	Packets []PacketID
}

func (StartStream) Opcode() byte     { return OpStream }
func (StartStream) Allowed() ModeSet { return Awake }
func (c StartStream) payload() ([]byte, error) {
	return packetListPayload(c.Packets)
}

// PauseResumeStream pauses or resumes the stream without clearing its
// packet list.
type PauseResumeStream struct {
	Resume bool
}

func (PauseResumeStream) Opcode() byte     { return OpPauseResume }
func (PauseResumeStream) Allowed() ModeSet { return Awake }
func (c PauseResumeStream) payload() ([]byte, error) {
	if c.Resume {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// Power puts the vehicle to sleep like the power button; the OI is left in
// passive mode.
type Power struct{}

func (Power) Opcode() byte             { return OpPower }
func (Power) Allowed() ModeSet         { return Controlled }
func (Power) payload() ([]byte, error) { return nil, nil }

// Reset is the undocumented hard reset, equivalent to a battery pull.
//
// The vehicle's mode after a reset is not documented either. Unlike the
// demo commands, whose fallback to passive is left untracked, Reset is
// tracked as a move to ModeOff: the next command must be Start, which the
// vehicle accepts in every mode. Songs and the stream subscription are
// forgotten with it.
type Reset struct{}

func (Reset) Opcode() byte             { return OpReset }
func (Reset) Allowed() ModeSet         { return Awake }
func (Reset) payload() ([]byte, error) { return nil, nil }

// WaitTime makes the vehicle wait Tenths * 0.1s.
type WaitTime struct {
	Tenths int
}

func (WaitTime) Opcode() byte     { return OpWaitTime }
func (WaitTime) Allowed() ModeSet { return AnyMode }
func (c WaitTime) payload() ([]byte, error) {
	return uint8Field(nil, "time", c.Tenths, RangeUint8)
}

// WaitDistance makes the vehicle wait until it has travelled Millimeters.
type WaitDistance struct {
	Millimeters int
}

func (WaitDistance) Opcode() byte     { return OpWaitDistance }
func (WaitDistance) Allowed() ModeSet { return AnyMode }
func (c WaitDistance) payload() ([]byte, error) {
	return int16Field(make([]byte, 0, 2), "distance", c.Millimeters, RangeInt16)
}

// WaitAngle makes the vehicle wait until it has turned Degrees
// (counterclockwise positive).
type WaitAngle struct {
	Degrees int
}

func (WaitAngle) Opcode() byte     { return OpWaitAngle }
func (WaitAngle) Allowed() ModeSet { return AnyMode }
func (c WaitAngle) payload() ([]byte, error) {
	return int16Field(make([]byte, 0, 2), "angle", c.Degrees, RangeInt16)
}

// WaitEvent makes the vehicle wait for an event, or for it to stop
// occurring when Negate is set.
type WaitEvent struct {
	Event  int
	Negate bool
}

func (WaitEvent) Opcode() byte     { return OpWaitEvent }
func (WaitEvent) Allowed() ModeSet { return AnyMode }
func (c WaitEvent) payload() ([]byte, error) {
	b, err := EncodeEvent(c.Event, c.Negate)
	if err != nil {
		return nil, err
	}
	return []byte{b}, nil
}

func validateSlot(slot int) error {
	if slot < 0 || slot >= MaxSongs {
		return &SlotRangeError{Slot: slot}
	}
	return nil
}

func validateSong(slot int, notes []Note) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	if len(notes) == 0 || len(notes) > MaxSongNotes {
		return &CapacityError{Count: len(notes), Max: MaxSongNotes}
	}
	for i, n := range notes {
		validNote := n.Number == NoteRest || (n.Number >= MinNote && n.Number <= MaxNote)
		if !validNote || n.Duration < 0 || n.Duration > 255 {
			return &NoteRangeError{Index: i, Note: n.Number, Duration: n.Duration}
		}
	}
	return nil
}

func validatePacket(name string, id PacketID) error {
	if !id.Valid() {
		return &FieldRangeError{Field: name, Value: int(id), Allowed: packetRange.String()}
	}
	return nil
}

func packetListPayload(ids []PacketID) ([]byte, error) {
	if len(ids) == 0 || len(ids) > MaxListPackets {
		return nil, &FieldRangeError{Field: "count", Value: len(ids), Allowed: Range{Min: 1, Max: MaxListPackets}.String()}
	}
	b := make([]byte, 0, 1+len(ids))
	b = append(b, byte(len(ids)))
	for i, id := range ids {
		if err := validatePacket(fmt.Sprintf("packets[%d]", i), id); err != nil {
			return nil, err
		}
		b = append(b, byte(id))
	}
	return b, nil
}
