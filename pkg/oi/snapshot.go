// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "time"

// Bits of PacketBumpsWheelDrops
const (
	BumpRight          = 0x01
	BumpLeft           = 0x02
	WheelDropRight     = 0x04
	WheelDropLeft      = 0x08
	WheelDropCaster    = 0x10
	ButtonPlay         = 0x01
	ButtonAdvance      = 0x04
	ChargingSourceHome = 0x02
)

// Sensors holds the latest value of every single sensor packet as typed
// fields. Values are stored as decoded; no unit conversion is applied.
type Sensors struct {
	Updated time.Time

	BumpsWheelDrops       uint8
	Wall                  bool
	CliffLeft             bool
	CliffFrontLeft        bool
	CliffFrontRight       bool
	CliffRight            bool
	VirtualWall           bool
	Overcurrents          uint8
	Infrared              uint8
	Buttons               uint8
	Distance              int16 // mm since last request
	Angle                 int16 // degrees since last request
	ChargingState         uint8
	Voltage               uint16 // mV
	Current               int16  // mA
	BatteryTemperature    int8   // degrees C
	BatteryCharge         uint16 // mAh
	BatteryCapacity       uint16 // mAh
	WallSignal            uint16
	CliffLeftSignal       uint16
	CliffFrontLeftSignal  uint16
	CliffFrontRightSignal uint16
	CliffRightSignal      uint16
	CargoDigitalInputs    uint8
	CargoAnalogSignal     uint16
	ChargingSources       uint8
	OIMode                uint8
	SongNumber            uint8
	SongPlaying           bool
	StreamPackets         uint8
	RequestedVelocity     int16
	RequestedRadius       int16
	RequestedRightVel     int16
	RequestedLeftVel      int16
}

// Apply copies readings into the typed fields.
func (s *Sensors) Apply(readings []Reading) {
	for _, r := range readings {
		s.set(r)
	}
	s.Updated = time.Now()
}

// Mode returns the OI mode reported by the vehicle (packet 35).
func (s *Sensors) Mode() Mode {
	switch s.OIMode {
	case 0:
		return ModeOff
	case 1:
		return ModePassive
	case 2:
		return ModeSafe
	case 3:
		return ModeFull
	}
	return Mode(-1)
}

// Bumped reports whether either bumper is pressed.
func (s *Sensors) Bumped() bool {
	return s.BumpsWheelDrops&(BumpLeft|BumpRight) != 0
}

// AnyCliff reports whether any cliff sensor is triggered.
func (s *Sensors) AnyCliff() bool {
	return s.CliffLeft || s.CliffFrontLeft || s.CliffFrontRight || s.CliffRight
}

func (s *Sensors) set(r Reading) {
	v := r.Value
	switch r.ID {
	case PacketBumpsWheelDrops:
		s.BumpsWheelDrops = uint8(v)
	case PacketWall:
		s.Wall = v != 0
	case PacketCliffLeft:
		s.CliffLeft = v != 0
	case PacketCliffFrontLeft:
		s.CliffFrontLeft = v != 0
	case PacketCliffFrontRight:
		s.CliffFrontRight = v != 0
	case PacketCliffRight:
		s.CliffRight = v != 0
	case PacketVirtualWall:
		s.VirtualWall = v != 0
	case PacketOvercurrents:
		s.Overcurrents = uint8(v)
	case PacketInfrared:
		s.Infrared = uint8(v)
	case PacketButtons:
		s.Buttons = uint8(v)
	case PacketDistance:
		s.Distance = int16(v)
	case PacketAngle:
		s.Angle = int16(v)
	case PacketChargingState:
		s.ChargingState = uint8(v)
	case PacketVoltage:
		s.Voltage = uint16(v)
	case PacketCurrent:
		s.Current = int16(v)
	case PacketBatteryTemperature:
		s.BatteryTemperature = int8(v)
	case PacketBatteryCharge:
		s.BatteryCharge = uint16(v)
	case PacketBatteryCapacity:
		s.BatteryCapacity = uint16(v)
	case PacketWallSignal:
		s.WallSignal = uint16(v)
	case PacketCliffLeftSignal:
		s.CliffLeftSignal = uint16(v)
	case PacketCliffFrontLeftSignal:
		s.CliffFrontLeftSignal = uint16(v)
	case PacketCliffFrontRightSig:
		s.CliffFrontRightSignal = uint16(v)
	case PacketCliffRightSignal:
		s.CliffRightSignal = uint16(v)
	case PacketCargoDigitalInputs:
		s.CargoDigitalInputs = uint8(v)
	case PacketCargoAnalogSignal:
		s.CargoAnalogSignal = uint16(v)
	case PacketChargingSources:
		s.ChargingSources = uint8(v)
	case PacketOIMode:
		s.OIMode = uint8(v)
	case PacketSongNumber:
		s.SongNumber = uint8(v)
	case PacketSongPlaying:
		s.SongPlaying = v != 0
	case PacketStreamPackets:
		s.StreamPackets = uint8(v)
	case PacketRequestedVelocity:
		s.RequestedVelocity = int16(v)
	case PacketRequestedRadius:
		s.RequestedRadius = int16(v)
	case PacketRequestedRightVel:
		s.RequestedRightVel = int16(v)
	case PacketRequestedLeftVel:
		s.RequestedLeftVel = int16(v)
	}
}
