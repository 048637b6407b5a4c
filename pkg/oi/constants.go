// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package oi implements the iRobot Create Open Interface (OI) serial protocol.
//
// The package tracks the vehicle's operating mode, validates and encodes
// commands into their exact wire bytes, decodes sensor packets and stream
// frames, and manages the bounded song and stream resources. It never opens
// the serial link itself; bytes go through the Transport interface.
package oi

// Opcodes. Each command starts with one of these bytes, optionally
// followed by data bytes.
const (
	OpReset          = 7
	OpStart          = 128
	OpBaud           = 129
	OpSafe           = 131
	OpFull           = 132
	OpPower          = 133
	OpSpot           = 134
	OpCover          = 135
	OpDemo           = 136
	OpDrive          = 137
	OpLowSideDrivers = 138
	OpLEDs           = 139
	OpSong           = 140
	OpPlay           = 141
	OpSensors        = 142
	OpCoverAndDock   = 143
	OpPWMLowSide     = 144
	OpDriveDirect    = 145
	OpDigitalOutputs = 147
	OpStream         = 148
	OpQueryList      = 149
	OpPauseResume    = 150
	OpSendIR         = 151
	OpWaitTime       = 155
	OpWaitDistance   = 156
	OpWaitAngle      = 157
	OpWaitEvent      = 158
)

// Demo identifiers for OpDemo.
const (
	DemoCover     = 0
	DemoGoHome    = 1
	DemoSpiral    = 2
	DemoMouse     = 3
	DemoFigure8   = 4
	DemoWimp      = 5
	DemoHome      = 6
	DemoTag       = 7
	DemoPachelbel = 8
	DemoBanjo     = 9
	DemoStop      = 255
)

// Drive limits
const (
	MaxVelocity    = 500
	MaxRadius      = 2000
	RadiusStraight = 32768
	RadiusSpinCW   = -1
	RadiusSpinCCW  = 1
	MaxPWMLowSide  = 128
	MaxSongs       = 16
	MaxSongNotes   = 16
	NoteRest       = 0
	MinNote        = 31
	MaxNote        = 127
	MaxListPackets = 254
)

// Stream framing
const (
	StreamHeader = 19

	// StreamPeriodMs is the vehicle-side stream cadence.
	StreamPeriodMs = 15
)

// Wait events for OpWaitEvent.
const (
	EventWheelDrop      = 1
	EventFrontWheelDrop = 2
	EventLeftWheelDrop  = 3
	EventRightWheelDrop = 4
	EventBump           = 5
	EventLeftBump       = 6
	EventRightBump      = 7
	EventVirtualWall    = 8
	EventWall           = 9
	EventCliff          = 10
	EventLeftCliff      = 11
	EventFrontLeftCliff = 12
	EventFrontRight     = 13
	EventRightCliff     = 14
	EventHomeBase       = 15
	EventAdvanceButton  = 16
	EventPlayButton     = 17
	EventDigitalInput0  = 18
	EventDigitalInput1  = 19
	EventDigitalInput2  = 20
	EventDigitalInput3  = 21
	EventOIModePassive  = 22

	minEvent = EventWheelDrop
	maxEvent = EventOIModePassive
)

// LED bits for the first LEDs data byte.
const (
	LEDPlay    = 0x02
	LEDAdvance = 0x08
)

// baudRates maps SetBaud codes 0-11 to bits per second.
var baudRates = [...]int{300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 28800, 38400, 57600, 115200}

var baudRange = Range{Min: 0, Max: len(baudRates) - 1}

// DefaultBaudCode is the rate the vehicle uses after power up (57600).
const DefaultBaudCode = 10

// BaudRate returns the bits per second selected by a SetBaud code.
func BaudRate(code int) (int, bool) {
	if code < 0 || code >= len(baudRates) {
		return 0, false
	}
	return baudRates[code], true
}

// BaudCode returns the SetBaud code for a rate in bits per second.
func BaudCode(rate int) (int, bool) {
	for code, r := range baudRates {
		if r == rate {
			return code, true
		}
	}
	return 0, false
}
