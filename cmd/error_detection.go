// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/pkg/oi"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection [packet...]",
	Short: "Detect and analyze corrupt frames and anomalous readings",
	Long: `Track stream errors and anomalous sensor values with statistics.

This command starts the sensor stream, validates each frame and detects:
  - Checksum failures and frames that do not match the subscription
  - Anomalous readings (OI mode > 3, charging state > 5, song > 15,
    requested velocity outside +/-500 mm/s, charge above capacity)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// streamMsg is one result of the frame sequence.
type streamMsg struct {
	frame            *oi.Frame
	err              error
	validationErrors []oi.ValidationError
}

// streamEndMsg reports that the frame sequence ended.
type streamEndMsg struct {
	err error
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	ids, err := parsePackets(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log := logger
	if useTUI {
		log = tuiLogger()
	}
	conn, err := OpenConnection(ctx, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ids, err = startStream(ctx, conn, ids)
	if err != nil {
		return err
	}
	defer pauseStream(conn)

	if useTUI {
		return runTUIMode(ctx, conn, ids)
	}
	return runTextMode(ctx, conn, ids)
}

// readStream validates frames from the session until the sequence ends.
func readStream(ctx context.Context, conn *Connection, out func(tea.Msg)) {
	for frame, err := range conn.Session.Frames(ctx) {
		if err != nil && !oi.IsFraming(err) {
			out(streamEndMsg{err: err})
			return
		}
		msg := streamMsg{frame: frame, err: err}
		if frame != nil {
			msg.validationErrors = oi.ValidateFrame(frame)
		}
		out(msg)
	}
	out(streamEndMsg{})
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mFRAME ERROR:\033[0m %v\n", timestamp, err)
	var ce *oi.ChecksumError
	if errors.As(err, &ce) {
		fmt.Printf("  sum=0x%02X (want 0x00)\n", ce.Sum)
	}
	fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(frame *oi.Frame, errs []oi.ValidationError) {
	timestamp := frame.Timestamp.Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %d readings\n", timestamp, len(frame.Readings))
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errs {
		switch err.Type {
		case oi.AnomalyInvalidMode, oi.AnomalyInvalidChargingState, oi.AnomalyInvalidSong:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case oi.AnomalyVelocityRange:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if v, ok := err.Details["velocity"].(int); ok {
				fmt.Printf("    velocity=%d mm/s (valid: %s)\n", v, oi.RangeVelocity)
			}

		case oi.AnomalyBatteryCharge:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  raw: %s\n", oi.FormatBytes(frame.Raw))
	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, conn *Connection, ids []oi.PacketID) error {
	m := initialModel(conn.Info, ids, showAll)
	p := tea.NewProgram(m)

	go readStream(ctx, conn, p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, conn *Connection, ids []oi.PacketID) error {
	fmt.Printf("oistat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", conn.Info)
	fmt.Printf("Packets: %v\n", ids)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := oi.NewStatistics()

	// Sync tracking - ignore frame errors until the first valid frame
	synchronized := false
	rejectedBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	msgs := make(chan tea.Msg, 64)
	go readStream(ctx, conn, func(m tea.Msg) { msgs <- m })

	for {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case streamEndMsg:
				fmt.Println()
				fmt.Print(stats.String())
				if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
					return msg.err
				}
				return nil

			case streamMsg:
				if msg.err != nil {
					if synchronized {
						stats.Update(nil, msg.err, nil)
						printDecodeError(msg.err)
					} else {
						rejectedBeforeSync++
					}
					continue
				}

				if !synchronized {
					synchronized = true
					if rejectedBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after dropping %d frames\n\n", rejectedBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				stats.Update(msg.frame, nil, msg.validationErrors)
				if len(msg.validationErrors) > 0 {
					printValidationErrors(msg.frame, msg.validationErrors)
				} else if showAll {
					fmt.Print(oi.FormatFrame(msg.frame))
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
