// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyChecksum AnomalyType = iota
	AnomalyFraming
	AnomalyInvalidMode
	AnomalyInvalidChargingState
	AnomalyInvalidSong
	AnomalyVelocityRange
	AnomalyRadiusRange
	AnomalyBatteryCharge
	AnomalyInvalidValue
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyChecksum:
		return "CHECKSUM"
	case AnomalyFraming:
		return "FRAMING"
	case AnomalyInvalidMode:
		return "INVALID_MODE"
	case AnomalyInvalidChargingState:
		return "INVALID_CHARGING_STATE"
	case AnomalyInvalidSong:
		return "INVALID_SONG"
	case AnomalyVelocityRange:
		return "VELOCITY_RANGE"
	case AnomalyRadiusRange:
		return "RADIUS_RANGE"
	case AnomalyBatteryCharge:
		return "BATTERY_CHARGE"
	default:
		return "INVALID_VALUE"
	}
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]any
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a decoded frame for values the vehicle should never
// report. It returns nil for a clean frame.
func ValidateFrame(f *Frame) []ValidationError {
	errs := ValidateReadings(f.Readings)

	charge, okCharge := f.Value(PacketBatteryCharge)
	capacity, okCap := f.Value(PacketBatteryCapacity)
	if okCharge && okCap && capacity > 0 && charge > capacity {
		errs = append(errs, ValidationError{
			Type:    AnomalyBatteryCharge,
			Message: fmt.Sprintf("Battery charge %d mAh exceeds capacity %d mAh", charge, capacity),
			Details: map[string]any{"charge": charge, "capacity": capacity},
		})
	}
	return errs
}

// ValidateReadings checks each reading against the range the vehicle can
// legitimately report.
func ValidateReadings(readings []Reading) []ValidationError {
	var errs []ValidationError
	for _, r := range readings {
		if e, bad := validateReading(r); bad {
			errs = append(errs, e)
		}
	}
	return errs
}

func validateReading(r Reading) (ValidationError, bool) {
	switch r.ID {
	case PacketOIMode:
		if r.Value > 3 {
			return ValidationError{
				Type:    AnomalyInvalidMode,
				Message: fmt.Sprintf("Invalid OI mode=%d (max 3)", r.Value),
				Details: map[string]any{"mode": r.Value, "max": 3},
			}, true
		}
	case PacketChargingState:
		if r.Value > 5 {
			return ValidationError{
				Type:    AnomalyInvalidChargingState,
				Message: fmt.Sprintf("Invalid charging state=%d (max 5)", r.Value),
				Details: map[string]any{"state": r.Value, "max": 5},
			}, true
		}
	case PacketSongNumber:
		if r.Value >= MaxSongs {
			return ValidationError{
				Type:    AnomalyInvalidSong,
				Message: fmt.Sprintf("Invalid song number=%d (max %d)", r.Value, MaxSongs-1),
				Details: map[string]any{"song": r.Value, "max": MaxSongs - 1},
			}, true
		}
	case PacketRequestedVelocity, PacketRequestedRightVel, PacketRequestedLeftVel:
		if !RangeVelocity.Contains(r.Value) {
			return ValidationError{
				Type:    AnomalyVelocityRange,
				Message: fmt.Sprintf("%s=%d outside %s", r.ID, r.Value, RangeVelocity),
				Details: map[string]any{"packet": int(r.ID), "velocity": r.Value},
			}, true
		}
	case PacketRequestedRadius:
		// straight is reported as its 16-bit pattern
		if r.Value != -32768 && r.Value != 32767 && !RangeRadius.Contains(r.Value) {
			return ValidationError{
				Type:    AnomalyRadiusRange,
				Message: fmt.Sprintf("%s=%d outside %s", r.ID, r.Value, RangeRadius),
				Details: map[string]any{"radius": r.Value},
			}, true
		}
	case PacketCliffLeftSignal, PacketCliffFrontLeftSignal, PacketCliffFrontRightSig, PacketCliffRightSignal:
		if r.Value > 4095 {
			return ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("%s=%d exceeds 12-bit signal range", r.ID, r.Value),
				Details: map[string]any{"packet": int(r.ID), "value": r.Value, "max": 4095},
			}, true
		}
	case PacketWallSignal:
		if r.Value > 4095 {
			return ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("%s=%d exceeds 12-bit signal range", r.ID, r.Value),
				Details: map[string]any{"packet": int(r.ID), "value": r.Value, "max": 4095},
			}, true
		}
	case PacketCargoAnalogSignal:
		if r.Value > 1023 {
			return ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("%s=%d exceeds 10-bit signal range", r.ID, r.Value),
				Details: map[string]any{"value": r.Value, "max": 1023},
			}, true
		}
	}
	return ValidationError{}, false
}
