// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration

	// WakePulse is how long RTS is held low to wake the vehicle through
	// the device detect line.
	WakePulse time.Duration
}

// Serial is a Conn over a hardware serial port.
type Serial struct {
	port      serial.Port
	portName  string
	timeout   time.Duration
	wakePulse time.Duration
}

// OpenSerial opens a serial port at 8N1.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 57600
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if cfg.WakePulse == 0 {
		cfg.WakePulse = 500 * time.Millisecond
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Serial{
		port:      port,
		portName:  cfg.Port,
		timeout:   cfg.Timeout,
		wakePulse: cfg.WakePulse,
	}, nil
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// SetReadTimeout changes how long Read waits for data.
func (s *Serial) SetReadTimeout(timeout time.Duration) error {
	s.timeout = timeout
	return s.port.SetReadTimeout(timeout)
}

// SetBaudRate switches the local side of the link. Send SetBaud first and
// wait 100ms.
func (s *Serial) SetBaudRate(rate int) error {
	return s.port.SetMode(&serial.Mode{
		BaudRate: rate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Flush discards any buffered input.
func (s *Serial) Flush() error {
	return s.port.ResetInputBuffer()
}

// Wake pulses RTS low, which the vehicle cable routes to device detect.
func (s *Serial) Wake(ctx context.Context) error {
	if err := s.port.SetRTS(false); err != nil {
		return fmt.Errorf("failed to lower RTS: %w", err)
	}
	t := time.NewTimer(s.wakePulse)
	defer t.Stop()
	select {
	case <-ctx.Done():
		_ = s.port.SetRTS(true)
		return ctx.Err()
	case <-t.C:
	}
	if err := s.port.SetRTS(true); err != nil {
		return fmt.Errorf("failed to raise RTS: %w", err)
	}
	return nil
}

// PortName returns the serial port name.
func (s *Serial) PortName() string {
	return s.portName
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
