// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
)

// Encode validates cmd against the current mode and its field ranges and
// returns the opcode followed by the payload. Nothing is returned unless
// every check passes.
func Encode(cmd Command, current Mode) ([]byte, error) {
	if err := checkMode(cmd, current); err != nil {
		return nil, err
	}
	return Marshal(cmd)
}

// Marshal encodes cmd without a mode check. Field ranges are still
// validated. Use it for building scripts or for emulators.
func Marshal(cmd Command) ([]byte, error) {
	payload, err := cmd.payload()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FormatOpcode(cmd.Opcode()), err)
	}
	out := make([]byte, 0, 1+len(payload))
	out = append(out, cmd.Opcode())
	return append(out, payload...), nil
}

// DecodeCommand parses one command from the front of data and returns it
// with the number of bytes consumed. Structural problems (unknown opcode,
// missing bytes) are errors; field values are not range checked.
func DecodeCommand(data []byte) (Command, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrTruncated
	}
	op := data[0]
	body := data[1:]

	need := func(n int) error {
		if len(body) < n {
			return fmt.Errorf("%w: %s needs %d data bytes, have %d", ErrTruncated, FormatOpcode(op), n, len(body))
		}
		return nil
	}
	i16 := func(off int) int {
		return int(int16(uint16(body[off])<<8 | uint16(body[off+1])))
	}

	switch op {
	case OpStart:
		return Start{}, 1, nil
	case OpSafe:
		return SafeMode{}, 1, nil
	case OpFull:
		return FullMode{}, 1, nil
	case OpPower:
		return Power{}, 1, nil
	case OpSpot:
		return Spot{}, 1, nil
	case OpCover:
		return Cover{}, 1, nil
	case OpCoverAndDock:
		return CoverAndDock{}, 1, nil
	case OpReset:
		return Reset{}, 1, nil

	case OpBaud, OpDemo, OpDigitalOutputs, OpLowSideDrivers, OpSendIR,
		OpPlay, OpSensors, OpPauseResume, OpWaitTime, OpWaitEvent:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return decodeOneByte(op, body[0])

	case OpDrive:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		radius := i16(2)
		if radius == -32768 {
			radius = RadiusStraight
		}
		return Drive{Velocity: i16(0), Radius: radius}, 5, nil

	case OpDriveDirect:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return DriveDirect{Right: i16(0), Left: i16(2)}, 5, nil

	case OpWaitDistance, OpWaitAngle:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		if op == OpWaitDistance {
			return WaitDistance{Millimeters: i16(0)}, 3, nil
		}
		return WaitAngle{Degrees: i16(0)}, 3, nil

	case OpLEDs:
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return LEDs{
			Play:      body[0]&LEDPlay != 0,
			Advance:   body[0]&LEDAdvance != 0,
			Color:     int(body[1]),
			Intensity: int(body[2]),
		}, 4, nil

	case OpPWMLowSide:
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return PWMLowSideDrivers{LSD2: int(body[0]), LSD1: int(body[1]), LSD0: int(body[2])}, 4, nil

	case OpSong:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		count := int(body[1])
		if err := need(2 + 2*count); err != nil {
			return nil, 0, err
		}
		notes := make([]Note, count)
		for i := range notes {
			notes[i] = Note{Number: int(body[2+2*i]), Duration: int(body[3+2*i])}
		}
		return DefineSong{Slot: int(body[0]), Notes: notes}, 3 + 2*count, nil

	case OpStream, OpQueryList:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		count := int(body[0])
		if err := need(1 + count); err != nil {
			return nil, 0, err
		}
		ids := make([]PacketID, count)
		for i := range ids {
			ids[i] = PacketID(body[1+i])
		}
		if op == OpStream {
			return StartStream{Packets: ids}, 2 + count, nil
		}
		return RequestSensorList{Packets: ids}, 2 + count, nil
	}

	return nil, 0, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, op)
}

func decodeOneByte(op, b byte) (Command, int, error) {
	v := int(b)
	switch op {
	case OpBaud:
		return SetBaud{Code: v}, 2, nil
	case OpDemo:
		return Demo{Demo: v}, 2, nil
	case OpDigitalOutputs:
		return DigitalOutputs{Bits: v}, 2, nil
	case OpLowSideDrivers:
		return LowSideDrivers{Bits: v}, 2, nil
	case OpSendIR:
		return SendIR{Value: v}, 2, nil
	case OpPlay:
		return PlaySong{Slot: v}, 2, nil
	case OpSensors:
		return RequestSensor{Packet: PacketID(v)}, 2, nil
	case OpPauseResume:
		return PauseResumeStream{Resume: b != 0}, 2, nil
	case OpWaitTime:
		return WaitTime{Tenths: v}, 2, nil
	case OpWaitEvent:
		id, negated, err := DecodeEvent(b)
		if err != nil {
			return nil, 0, err
		}
		return WaitEvent{Event: id, Negate: negated}, 2, nil
	}
	return nil, 0, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, op)
}

// DecodeScript parses a byte sequence of back-to-back commands.
func DecodeScript(data []byte) ([]Command, error) {
	var cmds []Command
	for off := 0; off < len(data); {
		cmd, n, err := DecodeCommand(data[off:])
		if err != nil {
			return cmds, fmt.Errorf("offset %d: %w", off, err)
		}
		cmds = append(cmds, cmd)
		off += n
	}
	return cmds, nil
}
