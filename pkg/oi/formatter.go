// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"strings"
)

// FormatOpcode returns the human-readable name for an opcode
func FormatOpcode(op byte) string {
	switch op {
	case OpReset:
		return "RESET"
	case OpStart:
		return "START"
	case OpBaud:
		return "BAUD"
	case OpSafe:
		return "SAFE"
	case OpFull:
		return "FULL"
	case OpPower:
		return "POWER"
	case OpSpot:
		return "SPOT"
	case OpCover:
		return "COVER"
	case OpDemo:
		return "DEMO"
	case OpDrive:
		return "DRIVE"
	case OpLowSideDrivers:
		return "LOW_SIDE_DRIVERS"
	case OpLEDs:
		return "LEDS"
	case OpSong:
		return "SONG"
	case OpPlay:
		return "PLAY"
	case OpSensors:
		return "SENSORS"
	case OpCoverAndDock:
		return "COVER_AND_DOCK"
	case OpPWMLowSide:
		return "PWM_LOW_SIDE_DRIVERS"
	case OpDriveDirect:
		return "DRIVE_DIRECT"
	case OpDigitalOutputs:
		return "DIGITAL_OUTPUTS"
	case OpStream:
		return "STREAM"
	case OpQueryList:
		return "QUERY_LIST"
	case OpPauseResume:
		return "PAUSE_RESUME_STREAM"
	case OpSendIR:
		return "SEND_IR"
	case OpWaitTime:
		return "WAIT_TIME"
	case OpWaitDistance:
		return "WAIT_DISTANCE"
	case OpWaitAngle:
		return "WAIT_ANGLE"
	case OpWaitEvent:
		return "WAIT_EVENT"
	default:
		return "UNKNOWN"
	}
}

// FormatEvent returns the name of a wait event id
func FormatEvent(id int) string {
	names := [...]string{
		"WHEEL_DROP", "FRONT_WHEEL_DROP", "LEFT_WHEEL_DROP", "RIGHT_WHEEL_DROP",
		"BUMP", "LEFT_BUMP", "RIGHT_BUMP", "VIRTUAL_WALL", "WALL", "CLIFF",
		"LEFT_CLIFF", "FRONT_LEFT_CLIFF", "FRONT_RIGHT_CLIFF", "RIGHT_CLIFF",
		"HOME_BASE", "ADVANCE_BUTTON", "PLAY_BUTTON", "DIGITAL_INPUT_0",
		"DIGITAL_INPUT_1", "DIGITAL_INPUT_2", "DIGITAL_INPUT_3", "OI_MODE_PASSIVE",
	}
	if id < minEvent || id > maxEvent {
		return fmt.Sprintf("EVENT_%d", id)
	}
	return names[id-minEvent]
}

// FormatCommand formats a command and its fields on one line
func FormatCommand(cmd Command) string {
	name := FormatOpcode(cmd.Opcode())
	switch c := cmd.(type) {
	case SetBaud:
		rate, _ := BaudRate(c.Code)
		return fmt.Sprintf("%s code=%d (%d bps)", name, c.Code, rate)
	case Demo:
		return fmt.Sprintf("%s demo=%d", name, c.Demo)
	case Drive:
		return fmt.Sprintf("%s velocity=%d mm/s radius=%s", name, c.Velocity, formatRadius(c.Radius))
	case DriveDirect:
		return fmt.Sprintf("%s right=%d left=%d mm/s", name, c.Right, c.Left)
	case LEDs:
		return fmt.Sprintf("%s play=%t advance=%t color=%d intensity=%d", name, c.Play, c.Advance, c.Color, c.Intensity)
	case DigitalOutputs:
		return fmt.Sprintf("%s bits=%03b", name, c.Bits)
	case LowSideDrivers:
		return fmt.Sprintf("%s bits=%03b", name, c.Bits)
	case PWMLowSideDrivers:
		return fmt.Sprintf("%s lsd2=%d lsd1=%d lsd0=%d", name, c.LSD2, c.LSD1, c.LSD0)
	case SendIR:
		return fmt.Sprintf("%s value=%d", name, c.Value)
	case DefineSong:
		return fmt.Sprintf("%s slot=%d notes=%s", name, c.Slot, FormatNotes(c.Notes))
	case PlaySong:
		return fmt.Sprintf("%s slot=%d", name, c.Slot)
	case RequestSensor:
		return fmt.Sprintf("%s packet=%s", name, c.Packet)
	case RequestSensorList:
		return fmt.Sprintf("%s packets=%s", name, formatPacketList(c.Packets))
	case StartStream:
		return fmt.Sprintf("%s packets=%s", name, formatPacketList(c.Packets))
	case PauseResumeStream:
		if c.Resume {
			return name + " resume"
		}
		return name + " pause"
	case WaitTime:
		return fmt.Sprintf("%s %.1fs", name, float64(c.Tenths)/10)
	case WaitDistance:
		return fmt.Sprintf("%s %d mm", name, c.Millimeters)
	case WaitAngle:
		return fmt.Sprintf("%s %d deg", name, c.Degrees)
	case WaitEvent:
		if c.Negate {
			return fmt.Sprintf("%s not %s", name, FormatEvent(c.Event))
		}
		return fmt.Sprintf("%s %s", name, FormatEvent(c.Event))
	}
	return name
}

// FormatNotes formats notes as note:duration pairs
func FormatNotes(notes []Note) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("%d:%d", n.Number, n.Duration)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatRadius(r int) string {
	switch r {
	case RadiusStraight:
		return "straight"
	case RadiusSpinCW:
		return "spin-cw"
	case RadiusSpinCCW:
		return "spin-ccw"
	}
	return fmt.Sprintf("%d mm", r)
}

func formatPacketList(ids []PacketID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// FormatReading formats one reading with its unit where one applies
func FormatReading(r Reading) string {
	switch r.ID {
	case PacketDistance, PacketRequestedRadius:
		return fmt.Sprintf("%s=%d mm", r.ID, r.Value)
	case PacketAngle:
		return fmt.Sprintf("%s=%d deg", r.ID, r.Value)
	case PacketVoltage:
		return fmt.Sprintf("%s=%.3f V", r.ID, float64(r.Value)/1000)
	case PacketCurrent:
		return fmt.Sprintf("%s=%d mA", r.ID, r.Value)
	case PacketBatteryTemperature:
		return fmt.Sprintf("%s=%d C", r.ID, r.Value)
	case PacketBatteryCharge, PacketBatteryCapacity:
		return fmt.Sprintf("%s=%d mAh", r.ID, r.Value)
	case PacketRequestedVelocity, PacketRequestedRightVel, PacketRequestedLeftVel:
		return fmt.Sprintf("%s=%d mm/s", r.ID, r.Value)
	case PacketOIMode:
		return fmt.Sprintf("%s=%s", r.ID, (&Sensors{OIMode: uint8(r.Value)}).Mode())
	case PacketChargingState:
		return fmt.Sprintf("%s=%s", r.ID, formatChargingState(r.Value))
	case PacketBumpsWheelDrops, PacketButtons, PacketOvercurrents, PacketCargoDigitalInputs, PacketChargingSources:
		return fmt.Sprintf("%s=0x%02X", r.ID, r.Value)
	}
	return r.String()
}

func formatChargingState(v int) string {
	states := [...]string{"NOT_CHARGING", "RECONDITIONING", "FULL_CHARGING", "TRICKLE_CHARGING", "WAITING", "FAULT"}
	if v < 0 || v >= len(states) {
		return fmt.Sprintf("UNKNOWN(%d)", v)
	}
	return states[v]
}

// FormatFrame formats a stream frame into a human-readable string
func FormatFrame(f *Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] STREAM len=%d\n", f.Timestamp.Format("15:04:05.000"), len(f.Raw))
	for _, r := range f.Readings {
		fmt.Fprintf(&b, "  %s\n", FormatReading(r))
	}
	return b.String()
}

// FormatBytes formats bytes as space separated hex
func FormatBytes(data []byte) string {
	var b strings.Builder
	for i, x := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", x)
	}
	return b.String()
}
