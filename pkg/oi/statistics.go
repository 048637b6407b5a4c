// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Statistics tracks stream frame counts and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	FramingErrors   uint64
	DecodeErrors    uint64
	AnomalousValues uint64
	InvalidModes    uint64
	VelocityRange   uint64
	OtherAnomalies  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decoder result and its validation errors
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		var ce *ChecksumError
		var fe *FramingError
		switch {
		case errors.As(decodeErr, &ce):
			s.ChecksumErrors++
		case errors.As(decodeErr, &fe):
			s.FramingErrors++
		default:
			s.DecodeErrors++
		}
		return
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}
	s.AnomalousValues++
	for _, v := range validationErrors {
		switch v.Type {
		case AnomalyInvalidMode:
			s.InvalidModes++
		case AnomalyVelocityRange:
			s.VelocityRange++
		default:
			s.OtherAnomalies++
		}
	}
}

// Errors returns the number of frames that failed decoding or validation
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.FramingErrors + s.DecodeErrors + s.AnomalousValues
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

func (s *Statistics) percent(n uint64) float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(s.TotalFrames)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	elapsed := time.Since(s.StartTime)

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	fmt.Fprintf(&b, "Total Frames:    %8d\n", s.TotalFrames)
	fmt.Fprintf(&b, "Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, s.percent(s.ValidFrames))
	if s.ChecksumErrors > 0 {
		fmt.Fprintf(&b, "Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, s.percent(s.ChecksumErrors))
	}
	if s.FramingErrors > 0 {
		fmt.Fprintf(&b, "Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, s.percent(s.FramingErrors))
	}
	if s.DecodeErrors > 0 {
		fmt.Fprintf(&b, "Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, s.percent(s.DecodeErrors))
	}
	if s.AnomalousValues > 0 {
		fmt.Fprintf(&b, "Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, s.percent(s.AnomalousValues))
		if s.InvalidModes > 0 {
			fmt.Fprintf(&b, "  Invalid Mode:     %5d\n", s.InvalidModes)
		}
		if s.VelocityRange > 0 {
			fmt.Fprintf(&b, "  Velocity Range:   %5d\n", s.VelocityRange)
		}
		if s.OtherAnomalies > 0 {
			fmt.Fprintf(&b, "  Other:            %5d\n", s.OtherAnomalies)
		}
	}
	fmt.Fprintf(&b, "Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	fmt.Fprintf(&b, "Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
