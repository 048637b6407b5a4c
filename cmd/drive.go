// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Thermoquad/oistat/pkg/oi"
)

var driveUnchecked bool

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Interactive TUI for driving the vehicle",
	Long: `Drive the vehicle from an interactive terminal UI.

Features:
  - Live sensor panel from the full sensor group stream
  - Arrow key driving and typed velocity/radius commands
  - Statistics tracking
  - Event logging
  - Automatic reconnection on connection loss

The vehicle only accepts drive commands in Safe or Full mode, and this tool
only tracks Passive after START. With --unchecked, SAFE is sent after START
and drive commands go out without checking the tracked mode. Safe mode stops
the wheels on cliff, wheel drop and charger events.

Keys: arrows drive, space stops, Tab switches fields, Enter sends the typed
command, f requests Full mode, p pauses or resumes the sensor stream, q quits
(and stops the wheels).

Supports both serial and WebSocket connections.`,
	RunE: runDrive,
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().BoolVar(&driveUnchecked, "unchecked", false, "Enter Safe mode and send drive commands without mode checks")
}

var drivePackets = []oi.PacketID{oi.GroupAll}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn      *Connection
	mu        sync.RWMutex
	p         *tea.Program
	log       *zap.Logger
	unchecked bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func (cm *connectionManager) getConn() *Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
}

// send transmits cmd through the session, or straight to the link in
// unchecked mode.
func (cm *connectionManager) send(cmd oi.Command) error {
	conn := cm.getConn()
	if conn == nil {
		return oi.ErrClosed
	}
	if cm.unchecked {
		return conn.Session.SendUnchecked(cm.ctx, cmd)
	}
	return conn.Session.Send(cm.ctx, cmd)
}

// toggleStream pauses a running stream or resumes a paused one and reports
// whether it is now paused.
func (cm *connectionManager) toggleStream() (bool, error) {
	conn := cm.getConn()
	if conn == nil {
		return false, oi.ErrClosed
	}
	if conn.Session.Stream().Paused() {
		return false, conn.Session.Resume(cm.ctx)
	}
	return true, conn.Session.Pause(cm.ctx)
}

// prepare starts the OI and the stream on a fresh connection.
func (cm *connectionManager) prepare(conn *Connection) error {
	if _, err := startStream(cm.ctx, conn, drivePackets); err != nil {
		return err
	}
	if cm.unchecked {
		return conn.Session.SendUnchecked(cm.ctx, oi.SafeMode{})
	}
	return nil
}

func runDrive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log := tuiLogger()
	conn, err := OpenConnection(ctx, log)
	if err != nil {
		return err
	}

	cm := &connectionManager{
		conn:      conn,
		log:       log,
		unchecked: driveUnchecked,
		ctx:       ctx,
		cancel:    cancel,
	}
	if err := cm.prepare(conn); err != nil {
		return multierr.Append(err, conn.Close())
	}

	m := initialDriveModel(cm, conn.Info)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.p = p

	go cm.readerLoop()

	_, runErr := p.Run()
	cm.shutdown()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// shutdown stops the wheels and the stream before closing the link.
func (cm *connectionManager) shutdown() {
	conn := cm.getConn()
	cm.cancel()
	if conn == nil {
		return
	}
	ctx := context.Background()
	if cm.unchecked {
		_ = conn.Session.SendUnchecked(ctx, oi.DriveDirect{})
	} else {
		_ = conn.Session.Stop(ctx)
	}
	pauseStream(conn)
	_ = conn.Close()
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	for {
		if cm.ctx.Err() != nil {
			return
		}

		err := cm.readFromConnection()
		if cm.ctx.Err() != nil {
			return
		}

		cm.p.Send(connectionLostMsg{err: err})
		if !cm.reconnect() {
			return
		}
	}
}

// readFromConnection forwards frames to the TUI until the sequence ends and
// returns the error that ended it.
func (cm *connectionManager) readFromConnection() error {
	conn := cm.getConn()
	batchChan := make(chan streamMsg, 100)
	readerDone := make(chan struct{})
	var endErr error

	go func() {
		defer close(readerDone)
		for frame, err := range conn.Session.Frames(cm.ctx) {
			if err != nil && !oi.IsFraming(err) {
				endErr = err
				return
			}
			msg := streamMsg{frame: frame, err: err}
			if frame != nil {
				msg.validationErrors = oi.ValidateFrame(frame)
			}
			select {
			case batchChan <- msg:
			default:
			}
		}
	}()

	// the stream runs at 66 Hz; the TUI redraws at 20 Hz
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		var batch driveBatchMsg
	drainLoop:
		for {
			select {
			case msg := <-batchChan:
				batch.messages = append(batch.messages, msg)
			default:
				break drainLoop
			}
		}
		if len(batch.messages) > 0 {
			cm.p.Send(batch)
		}
	}

	for {
		select {
		case <-readerDone:
			flush()
			if endErr == nil {
				endErr = errors.New("stream ended")
			}
			return endErr
		case <-ticker.C:
			flush()
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		_ = conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, err := OpenConnection(cm.ctx, cm.log)
		if err == nil {
			if err = cm.prepare(conn); err == nil {
				cm.setConn(conn)
				cm.p.Send(reconnectedMsg{connInfo: conn.Info})
				return true
			}
			_ = conn.Close()
		}
		cm.log.Debug("reconnect failed", zap.Error(err), zap.Duration("backoff", backoff))

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
