// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Thermoquad/oistat/pkg/oi"
	"github.com/Thermoquad/oistat/pkg/transport"
)

// Connection is an open link to the vehicle and the session driving it.
type Connection struct {
	Link    *transport.Link
	Session *oi.Session
	Info    string

	// Serial is nil over a WebSocket bridge.
	Serial *transport.Serial
}

// Close closes the link.
func (c *Connection) Close() error {
	return c.Link.Close()
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("OISTAT_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens the WebSocket bridge when a URL is configured and the
// serial port otherwise, and creates a session on it.
func OpenConnection(ctx context.Context, log *zap.Logger) (*Connection, error) {
	if cfg.WebSocket.URL != "" {
		password := ""
		if cfg.WebSocket.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, err
			}
		}

		ws, err := transport.DialWebSocket(ctx, transport.WebSocketConfig{
			URL:           cfg.WebSocket.URL,
			Username:      cfg.WebSocket.Username,
			Password:      password,
			SkipSSLVerify: cfg.WebSocket.NoSSLVerify,
		})
		if err != nil {
			return nil, err
		}
		return newConnection(ws, nil, fmt.Sprintf("WebSocket: %s", cfg.WebSocket.URL), log)
	}

	if cfg.Serial.Port != "" {
		port, err := transport.OpenSerial(transport.SerialConfig{
			Port:      cfg.Serial.Port,
			BaudRate:  cfg.Serial.Baud,
			Timeout:   cfg.Serial.Timeout,
			WakePulse: cfg.Serial.WakePulse,
		})
		if err != nil {
			return nil, err
		}
		info := fmt.Sprintf("Serial: %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud)
		return newConnection(port, port, info, log)
	}

	return nil, errors.New("either --port or --url must be specified")
}

func newConnection(conn transport.Conn, port *transport.Serial, info string, log *zap.Logger) (*Connection, error) {
	link := transport.NewLink(conn)

	// validated with the config
	code, _ := oi.BaudCode(cfg.Serial.Baud)
	session, err := oi.NewSession(oi.SessionConfig{
		Transport: link,
		Logger:    log.With(zap.String("link", info)),
		BaudCode:  &code,
	})
	if err != nil {
		_ = link.Close()
		return nil, err
	}

	log.Debug("connection open", zap.String("link", info))
	return &Connection{Link: link, Session: session, Info: info, Serial: port}, nil
}

// startStream puts the vehicle in Passive and subscribes to ids, or to the
// configured packets when ids is empty.
func startStream(ctx context.Context, conn *Connection, ids []oi.PacketID) ([]oi.PacketID, error) {
	if len(ids) == 0 {
		ids = cfg.StreamPackets()
	}
	if err := conn.Session.Start(ctx); err != nil {
		return nil, err
	}
	if err := conn.Session.Subscribe(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// parsePackets turns command line packet names or numbers into ids.
func parsePackets(args []string) ([]oi.PacketID, error) {
	var ids []oi.PacketID
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if s == "" {
				continue
			}
			id, err := oi.ParsePacketID(s)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
