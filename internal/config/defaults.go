// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"time"

	"github.com/Thermoquad/oistat/pkg/oi"
)

func Defaults() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:      "/dev/ttyUSB0",
			Baud:      57600,
			Timeout:   100 * time.Millisecond,
			WakePulse: 500 * time.Millisecond,
		},

		Stream: StreamConfig{
			Packets: []PacketRef{
				PacketRef(oi.PacketBumpsWheelDrops),
				PacketRef(oi.PacketDistance),
				PacketRef(oi.PacketAngle),
				PacketRef(oi.PacketVoltage),
				PacketRef(oi.PacketOIMode),
			},
		},

		Log: LogConfig{
			Level: "info",
		},

		Recording: RecordingConfig{
			Dir: ".",
		},
	}
}
