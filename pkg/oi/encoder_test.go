// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeWireBytes(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		mode Mode
		want []byte
	}{
		{"start", Start{}, ModeOff, []byte{128}},
		{"baud 57600", SetBaud{Code: 10}, ModePassive, []byte{129, 10}},
		{"safe", SafeMode{}, ModeFull, []byte{131}},
		{"full", FullMode{}, ModeSafe, []byte{132}},
		{"power", Power{}, ModeSafe, []byte{133}},
		{"spot", Spot{}, ModePassive, []byte{134}},
		{"cover", Cover{}, ModePassive, []byte{135}},
		{"demo stop", Demo{Demo: DemoStop}, ModePassive, []byte{136, 255}},
		{"drive straight", Drive{Velocity: -200, Radius: RadiusStraight}, ModeSafe, []byte{137, 0xFF, 0x38, 0x80, 0x00}},
		{"drive arc", Drive{Velocity: -200, Radius: 500}, ModeFull, []byte{137, 0xFF, 0x38, 0x01, 0xF4}},
		{"drive spin", Drive{Velocity: 100, Radius: RadiusSpinCW}, ModeSafe, []byte{137, 0x00, 0x64, 0xFF, 0xFF}},
		{"low side drivers", LowSideDrivers{Bits: 3}, ModeSafe, []byte{138, 3}},
		{"leds", LEDs{Play: true, Advance: true, Color: 0, Intensity: 128}, ModeSafe, []byte{139, 0x0A, 0, 128}},
		{"song", DefineSong{Slot: 0, Notes: []Note{{62, 32}, {66, 32}}}, ModePassive, []byte{140, 0, 2, 62, 32, 66, 32}},
		{"play", PlaySong{Slot: 0}, ModeSafe, []byte{141, 0}},
		{"sensors group", RequestSensor{Packet: GroupAll}, ModePassive, []byte{142, 6}},
		{"cover and dock", CoverAndDock{}, ModePassive, []byte{143}},
		{"pwm", PWMLowSideDrivers{LSD2: 128, LSD1: 64, LSD0: 0}, ModeFull, []byte{144, 128, 64, 0}},
		{"drive direct", DriveDirect{Right: 500, Left: -500}, ModeSafe, []byte{145, 0x01, 0xF4, 0xFE, 0x0C}},
		{"digital outputs", DigitalOutputs{Bits: 7}, ModeSafe, []byte{147, 7}},
		{"stream", StartStream{Packets: []PacketID{PacketBumpsWheelDrops, PacketVoltage}}, ModePassive, []byte{148, 2, 7, 22}},
		{"query list", RequestSensorList{Packets: []PacketID{PacketWall}}, ModeSafe, []byte{149, 1, 8}},
		{"pause", PauseResumeStream{Resume: false}, ModePassive, []byte{150, 0}},
		{"resume", PauseResumeStream{Resume: true}, ModePassive, []byte{150, 1}},
		{"send ir", SendIR{Value: 200}, ModeFull, []byte{151, 200}},
		{"wait time", WaitTime{Tenths: 25}, ModeOff, []byte{155, 25}},
		{"wait distance", WaitDistance{Millimeters: -1000}, ModeSafe, []byte{156, 0xFC, 0x18}},
		{"wait angle", WaitAngle{Degrees: 90}, ModeSleeping, []byte{157, 0x00, 0x5A}},
		{"wait bump", WaitUntil(EventBump), ModePassive, []byte{158, 5}},
		{"wait not bump", WaitUntilNot(EventBump), ModePassive, []byte{158, 251}},
		{"reset", Reset{}, ModePassive, []byte{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd, tt.mode)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		cmd   Command
		field string
	}{
		{"velocity", Drive{Velocity: 501, Radius: 0}, "velocity"},
		{"radius", Drive{Velocity: 0, Radius: 2001}, "radius"},
		{"first violation wins", Drive{Velocity: -600, Radius: 9999}, "velocity"},
		{"right wheel", DriveDirect{Right: -501, Left: 0}, "right"},
		{"left wheel", DriveDirect{Right: 0, Left: 600}, "left"},
		{"baud", SetBaud{Code: 12}, "baud"},
		{"demo", Demo{Demo: 10}, "demo"},
		{"color", LEDs{Color: 256}, "color"},
		{"pwm", PWMLowSideDrivers{LSD1: 129}, "lsd1"},
		{"outputs", DigitalOutputs{Bits: 8}, "outputs"},
		{"sensor packet", RequestSensor{Packet: 43}, "packet"},
		{"empty stream", StartStream{}, "count"},
		{"stream id", StartStream{Packets: []PacketID{7, 99}}, "packets[1]"},
		{"wait time", WaitTime{Tenths: 256}, "time"},
		{"wait distance", WaitDistance{Millimeters: 40000}, "distance"},
		{"wait event", WaitEvent{Event: 23}, "event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd, ModeFull)
			if got != nil {
				t.Errorf("Encode() returned bytes %v with error", got)
			}
			var fe *FieldRangeError
			if !errors.As(err, &fe) {
				t.Fatalf("Encode() error = %v, want FieldRangeError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
			if !IsInvalidInput(err) {
				t.Error("IsInvalidInput() = false")
			}
		})
	}
}

func TestModeCheckedBeforeFields(t *testing.T) {
	_, err := Encode(Drive{Velocity: 9999}, ModePassive)
	if !IsModeViolation(err) {
		t.Errorf("Encode() error = %v, want ModeViolation", err)
	}
}

func TestSongErrors(t *testing.T) {
	notes17 := make([]Note, 17)
	for i := range notes17 {
		notes17[i] = Note{Number: 60, Duration: 16}
	}

	var ce *CapacityError
	if _, err := Encode(DefineSong{Slot: 0, Notes: notes17}, ModePassive); !errors.As(err, &ce) {
		t.Errorf("17 notes: error = %v, want CapacityError", err)
	}
	if _, err := Encode(DefineSong{Slot: 0}, ModePassive); !errors.As(err, &ce) {
		t.Errorf("no notes: error = %v, want CapacityError", err)
	}

	var se *SlotRangeError
	if _, err := Encode(DefineSong{Slot: 16, Notes: []Note{{60, 16}}}, ModePassive); !errors.As(err, &se) {
		t.Errorf("slot 16: error = %v, want SlotRangeError", err)
	}
	if _, err := Encode(PlaySong{Slot: -1}, ModeSafe); !errors.As(err, &se) {
		t.Errorf("play slot -1: error = %v, want SlotRangeError", err)
	}

	var ne *NoteRangeError
	_, err := Encode(DefineSong{Slot: 1, Notes: []Note{{60, 16}, {30, 16}}}, ModePassive)
	if !errors.As(err, &ne) {
		t.Fatalf("note 30: error = %v, want NoteRangeError", err)
	}
	if ne.Index != 1 || ne.Note != 30 {
		t.Errorf("NoteRangeError = %+v", ne)
	}
	if _, err := Encode(DefineSong{Slot: 1, Notes: []Note{{NoteRest, 256}}}, ModePassive); !errors.As(err, &ne) {
		t.Errorf("duration 256: error = %v, want NoteRangeError", err)
	}
}

func TestDecodeCommandRoundTrip(t *testing.T) {
	cmds := []Command{
		Start{}, SetBaud{Code: 11}, SafeMode{}, FullMode{}, Power{}, Spot{}, Cover{},
		CoverAndDock{}, Demo{Demo: DemoBanjo}, Reset{},
		Drive{Velocity: -500, Radius: RadiusStraight},
		Drive{Velocity: 250, Radius: -2000},
		DriveDirect{Right: 10, Left: -10},
		LEDs{Play: true, Color: 255, Intensity: 1},
		DigitalOutputs{Bits: 5}, LowSideDrivers{Bits: 2}, SendIR{Value: 129},
		PWMLowSideDrivers{LSD2: 1, LSD1: 2, LSD0: 3},
		DefineSong{Slot: 15, Notes: []Note{{NoteRest, 8}, {127, 255}}},
		PlaySong{Slot: 15},
		RequestSensor{Packet: PacketAngle},
		RequestSensorList{Packets: []PacketID{GroupBattery, PacketDistance}},
		StartStream{Packets: []PacketID{PacketOIMode}},
		PauseResumeStream{Resume: true},
		WaitTime{Tenths: 255}, WaitDistance{Millimeters: -32768},
		WaitAngle{Degrees: 32767}, WaitEvent{Event: EventOIModePassive, Negate: true},
	}

	var script []byte
	for _, cmd := range cmds {
		data, err := Marshal(cmd)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", FormatCommand(cmd), err)
		}
		got, n, err := DecodeCommand(data)
		if err != nil {
			t.Fatalf("DecodeCommand(%v) error = %v", data, err)
		}
		if n != len(data) {
			t.Errorf("%s: consumed %d bytes, want %d", FormatCommand(cmd), n, len(data))
		}
		if diff := cmp.Diff(cmd, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
		script = append(script, data...)
	}

	decoded, err := DecodeScript(script)
	if err != nil {
		t.Fatalf("DecodeScript() error = %v", err)
	}
	if diff := cmp.Diff(cmds, decoded); diff != "" {
		t.Errorf("DecodeScript() mismatch (-want +got):\n%s", diff)
	}
}

func TestDriveRoundTrip(t *testing.T) {
	radii := []int{-MaxRadius, -1000, -1, 0, 1, 1000, MaxRadius, RadiusStraight}
	for v := -MaxVelocity; v <= MaxVelocity; v += 25 {
		for _, r := range radii {
			data, err := Encode(Drive{Velocity: v, Radius: r}, ModeSafe)
			if err != nil {
				t.Fatalf("Encode(Drive{%d, %d}) error = %v", v, r, err)
			}
			cmd, _, err := DecodeCommand(data)
			if err != nil {
				t.Fatalf("DecodeCommand() error = %v", err)
			}
			if got := cmd.(Drive); got.Velocity != v || got.Radius != r {
				t.Errorf("Drive{%d, %d} decoded as %+v", v, r, got)
			}
		}
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"unknown opcode", []byte{200}, ErrUnknownOpcode},
		{"unassigned 146", []byte{146, 0}, ErrUnknownOpcode},
		{"short drive", []byte{137, 0, 0, 0}, ErrTruncated},
		{"short song", []byte{140, 0, 2, 60, 10}, ErrTruncated},
		{"short list", []byte{148, 3, 7, 8}, ErrTruncated},
		{"missing baud code", []byte{129}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCommand(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeCommand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlayUndefinedSlotEncodes(t *testing.T) {
	store := NewSongStore()
	cmd, err := store.Play(5)
	if err != nil {
		t.Fatalf("Play(5) error = %v", err)
	}
	data, err := Encode(cmd, ModeSafe)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if diff := cmp.Diff([]byte{OpPlay, 5}, data); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
	if store.IsDefined(5) {
		t.Error("IsDefined(5) = true")
	}
}
