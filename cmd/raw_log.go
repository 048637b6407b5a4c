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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/oistat/pkg/oi"
)

var rawLogHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log [packet...]",
	Short: "Display the sensor stream in human-readable format",
	Long: `Start the sensor stream and decode each frame as it arrives.

Packets are given by number or name (e.g. 7 distance GROUP_3). Without
arguments the stream.packets list from the config file is used.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHex, "hex", false, "Also print the raw frame bytes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ids, err := parsePackets(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	ids, err = startStream(ctx, conn, ids)
	if err != nil {
		return err
	}
	defer pauseStream(conn)

	fmt.Printf("oistat - Raw Stream Log\n")
	fmt.Printf("Connection: %s\n", conn.Info)
	fmt.Printf("Packets: %v\n", ids)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for frame, err := range conn.Session.Frames(ctx) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if oi.IsFraming(err) {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			return err
		}
		fmt.Print(oi.FormatFrame(frame))
		if rawLogHex {
			fmt.Printf("  raw: %s\n", oi.FormatBytes(frame.Raw))
		}
	}
	return nil
}

// pauseStream stops the vehicle streaming so the next run starts on a quiet
// line. It runs after the command context is gone.
func pauseStream(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Session.Pause(ctx); err != nil {
		logger.Debug("cannot pause stream", zap.Error(err))
	}
}
