// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"strconv"
	"strings"
)

// PacketID identifies a sensor packet. 0-6 are groups, 7-42 single sensors.
type PacketID int

// Packet groups
const (
	GroupCore     PacketID = 0 // 7-26
	GroupSwitches PacketID = 1 // 7-16
	GroupMotion   PacketID = 2 // 17-20
	GroupBattery  PacketID = 3 // 21-26
	GroupSignals  PacketID = 4 // 27-34
	GroupState    PacketID = 5 // 35-42
	GroupAll      PacketID = 6 // 7-42
)

// Single sensor packets
const (
	PacketBumpsWheelDrops      PacketID = 7
	PacketWall                 PacketID = 8
	PacketCliffLeft            PacketID = 9
	PacketCliffFrontLeft       PacketID = 10
	PacketCliffFrontRight      PacketID = 11
	PacketCliffRight           PacketID = 12
	PacketVirtualWall          PacketID = 13
	PacketOvercurrents         PacketID = 14
	PacketUnused15             PacketID = 15
	PacketUnused16             PacketID = 16
	PacketInfrared             PacketID = 17
	PacketButtons              PacketID = 18
	PacketDistance             PacketID = 19
	PacketAngle                PacketID = 20
	PacketChargingState        PacketID = 21
	PacketVoltage              PacketID = 22
	PacketCurrent              PacketID = 23
	PacketBatteryTemperature   PacketID = 24
	PacketBatteryCharge        PacketID = 25
	PacketBatteryCapacity      PacketID = 26
	PacketWallSignal           PacketID = 27
	PacketCliffLeftSignal      PacketID = 28
	PacketCliffFrontLeftSignal PacketID = 29
	PacketCliffFrontRightSig   PacketID = 30
	PacketCliffRightSignal     PacketID = 31
	PacketCargoDigitalInputs   PacketID = 32
	PacketCargoAnalogSignal    PacketID = 33
	PacketChargingSources      PacketID = 34
	PacketOIMode               PacketID = 35
	PacketSongNumber           PacketID = 36
	PacketSongPlaying          PacketID = 37
	PacketStreamPackets        PacketID = 38
	PacketRequestedVelocity    PacketID = 39
	PacketRequestedRadius      PacketID = 40
	PacketRequestedRightVel    PacketID = 41
	PacketRequestedLeftVel     PacketID = 42

	firstSingle = PacketBumpsWheelDrops
	lastPacket  = PacketRequestedLeftVel
)

var packetRange = Range{Min: 0, Max: int(lastPacket)}

type packetInfo struct {
	name   string
	width  int
	signed bool
}

// packets describes single sensor packets, indexed by id - firstSingle.
var packets = [...]packetInfo{
	{"BUMPS_WHEEL_DROPS", 1, false},
	{"WALL", 1, false},
	{"CLIFF_LEFT", 1, false},
	{"CLIFF_FRONT_LEFT", 1, false},
	{"CLIFF_FRONT_RIGHT", 1, false},
	{"CLIFF_RIGHT", 1, false},
	{"VIRTUAL_WALL", 1, false},
	{"OVERCURRENTS", 1, false},
	{"UNUSED_15", 1, false},
	{"UNUSED_16", 1, false},
	{"INFRARED", 1, false},
	{"BUTTONS", 1, false},
	{"DISTANCE", 2, true},
	{"ANGLE", 2, true},
	{"CHARGING_STATE", 1, false},
	{"VOLTAGE", 2, false},
	{"CURRENT", 2, true},
	{"BATTERY_TEMPERATURE", 1, true},
	{"BATTERY_CHARGE", 2, false},
	{"BATTERY_CAPACITY", 2, false},
	{"WALL_SIGNAL", 2, false},
	{"CLIFF_LEFT_SIGNAL", 2, false},
	{"CLIFF_FRONT_LEFT_SIGNAL", 2, false},
	{"CLIFF_FRONT_RIGHT_SIGNAL", 2, false},
	{"CLIFF_RIGHT_SIGNAL", 2, false},
	{"CARGO_DIGITAL_INPUTS", 1, false},
	{"CARGO_ANALOG_SIGNAL", 2, false},
	{"CHARGING_SOURCES", 1, false},
	{"OI_MODE", 1, false},
	{"SONG_NUMBER", 1, false},
	{"SONG_PLAYING", 1, false},
	{"STREAM_PACKETS", 1, false},
	{"REQUESTED_VELOCITY", 2, true},
	{"REQUESTED_RADIUS", 2, true},
	{"REQUESTED_RIGHT_VELOCITY", 2, true},
	{"REQUESTED_LEFT_VELOCITY", 2, true},
}

// groups lists the first and last member of each group.
var groups = [...][2]PacketID{
	GroupCore:     {7, 26},
	GroupSwitches: {7, 16},
	GroupMotion:   {17, 20},
	GroupBattery:  {21, 26},
	GroupSignals:  {27, 34},
	GroupState:    {35, 42},
	GroupAll:      {7, 42},
}

var groupNames = [...]string{"GROUP_0", "GROUP_1", "GROUP_2", "GROUP_3", "GROUP_4", "GROUP_5", "GROUP_6"}

// Valid reports whether id is a known packet or group.
func (id PacketID) Valid() bool {
	return id >= 0 && id <= lastPacket
}

// IsGroup reports whether id names a packet group (0-6).
func IsGroup(id PacketID) bool {
	return id >= GroupCore && id <= GroupAll
}

// Members returns the single packets a group expands to, or id itself.
func Members(id PacketID) []PacketID {
	if !IsGroup(id) {
		return []PacketID{id}
	}
	first, last := groups[id][0], groups[id][1]
	out := make([]PacketID, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}

// WidthOf returns the number of data bytes for a packet or group.
func WidthOf(id PacketID) (int, error) {
	if !id.Valid() {
		return 0, &FieldRangeError{Field: "packet", Value: int(id), Allowed: packetRange.String()}
	}
	if !IsGroup(id) {
		return packets[id-firstSingle].width, nil
	}
	w := 0
	for _, m := range Members(id) {
		w += packets[m-firstSingle].width
	}
	return w, nil
}

// Signed reports whether a single packet is two's complement.
func Signed(id PacketID) bool {
	if id < firstSingle || id > lastPacket {
		return false
	}
	return packets[id-firstSingle].signed
}

// String returns the packet's display name.
func (id PacketID) String() string {
	switch {
	case IsGroup(id):
		return groupNames[id]
	case id.Valid():
		return packets[id-firstSingle].name
	default:
		return fmt.Sprintf("PACKET_%d", int(id))
	}
}

// ParsePacketID accepts a packet number or a name as returned by String,
// case insensitive.
func ParsePacketID(s string) (PacketID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		id := PacketID(n)
		if !id.Valid() {
			return 0, &FieldRangeError{Field: "packet", Value: n, Allowed: packetRange.String()}
		}
		return id, nil
	}
	name := strings.ToUpper(s)
	for id := PacketID(0); id <= lastPacket; id++ {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown packet %q", s)
}

// Reading is one decoded single-packet value.
type Reading struct {
	ID    PacketID
	Value int
}

func (r Reading) String() string {
	return fmt.Sprintf("%s=%d", r.ID, r.Value)
}

// Decode decodes the data bytes of one packet. Groups expand into one
// reading per member.
func Decode(id PacketID, data []byte) ([]Reading, error) {
	return DecodeList([]PacketID{id}, data)
}

// DecodeList splits a QueryList response by the cumulative widths of ids,
// in request order.
func DecodeList(ids []PacketID, data []byte) ([]Reading, error) {
	expected, err := ExpectedWidth(ids)
	if err != nil {
		return nil, err
	}
	if len(data) != expected {
		return nil, &FramingError{Expected: expected, Got: len(data)}
	}

	out := make([]Reading, 0, len(ids))
	offset := 0
	for _, id := range ids {
		for _, m := range Members(id) {
			r, n := decodeSingle(m, data[offset:])
			out = append(out, r)
			offset += n
		}
	}
	return out, nil
}

// decodeSingle decodes a single packet from the front of data. The caller
// guarantees the length.
func decodeSingle(id PacketID, data []byte) (Reading, int) {
	info := packets[id-firstSingle]
	if info.width == 1 {
		if info.signed {
			return Reading{ID: id, Value: int(int8(data[0]))}, 1
		}
		return Reading{ID: id, Value: int(data[0])}, 1
	}
	u := uint16(data[0])<<8 | uint16(data[1])
	if info.signed {
		return Reading{ID: id, Value: int(int16(u))}, 2
	}
	return Reading{ID: id, Value: int(u)}, 2
}

// ExpectedWidth returns the total data bytes for a list of packets.
func ExpectedWidth(ids []PacketID) (int, error) {
	total := 0
	for _, id := range ids {
		w, err := WidthOf(id)
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}
