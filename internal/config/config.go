// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the oistat YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/oistat/pkg/oi"
)

type SerialConfig struct {
	Port      string        `yaml:"port"`       // "/dev/ttyUSB0", "COM3"
	Baud      int           `yaml:"baud"`       // 57600
	Timeout   time.Duration `yaml:"timeout"`    // read timeout
	WakePulse time.Duration `yaml:"wake_pulse"` // RTS low time for wake
}

type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

type StreamConfig struct {
	Packets []PacketRef `yaml:"packets"`
}

type NoteConfig struct {
	Note     int `yaml:"note"`
	Duration int `yaml:"duration"` // 1/64 s
}

type SongConfig struct {
	Slot  int          `yaml:"slot"`
	Name  string       `yaml:"name"`
	Notes []NoteConfig `yaml:"notes"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type RecordingConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Stream    StreamConfig    `yaml:"stream"`
	Songs     []SongConfig    `yaml:"songs"`
	Log       LogConfig       `yaml:"log"`
	Recording RecordingConfig `yaml:"recording"`
}

// PacketRef is a sensor packet given by number or by name in YAML.
type PacketRef oi.PacketID

func (p *PacketRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: packet must be a number or a name", node.Line)
	}
	id, err := oi.ParsePacketID(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = PacketRef(id)
	return nil
}

func (p PacketRef) MarshalYAML() (any, error) {
	return oi.PacketID(p).String(), nil
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse yaml %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var err error
	if _, ok := oi.BaudCode(c.Serial.Baud); !ok {
		err = multierr.Append(err, fmt.Errorf("serial.baud %d is not a rate the vehicle supports", c.Serial.Baud))
	}
	if n := len(c.Stream.Packets); n == 0 || n > oi.MaxListPackets {
		err = multierr.Append(err, fmt.Errorf("stream.packets: %d packets (want 1-%d)", n, oi.MaxListPackets))
	}
	seen := map[int]bool{}
	for i, s := range c.Songs {
		if _, e := oi.NewSongStore().Prepare(s.Slot, s.OINotes()); e != nil {
			err = multierr.Append(err, fmt.Errorf("songs[%d]: %w", i, e))
		}
		if seen[s.Slot] {
			err = multierr.Append(err, fmt.Errorf("songs[%d]: slot %d defined twice", i, s.Slot))
		}
		seen[s.Slot] = true
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level %q unknown", c.Log.Level))
	}
	return err
}

// StreamPackets returns the configured stream subscription.
func (c *Config) StreamPackets() []oi.PacketID {
	ids := make([]oi.PacketID, len(c.Stream.Packets))
	for i, p := range c.Stream.Packets {
		ids[i] = oi.PacketID(p)
	}
	return ids
}

// OINotes converts the configured notes.
func (s SongConfig) OINotes() []oi.Note {
	notes := make([]oi.Note, len(s.Notes))
	for i, n := range s.Notes {
		notes[i] = oi.Note{Number: n.Note, Duration: n.Duration}
	}
	return notes
}

// Song returns the configured song for slot.
func (c *Config) Song(slot int) (SongConfig, bool) {
	for _, s := range c.Songs {
		if s.Slot == slot {
			return s, true
		}
	}
	return SongConfig{}, false
}
