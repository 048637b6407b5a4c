// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Wake a sleeping vehicle through the device detect line",
	Long: `Pulse RTS low for serial.wake_pulse (default 500ms). Cables that route RTS to
the Create's device detect pin wake the vehicle this way.

Serial connections only.`,
	Args: cobra.NoArgs,
	RunE: runWake,
}

func init() {
	rootCmd.AddCommand(wakeCmd)
}

func runWake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if conn.Serial == nil {
		return errors.New("wake needs a serial connection")
	}

	fmt.Printf("Pulsing RTS on %s...\n", conn.Serial.PortName())
	if err := conn.Serial.Wake(ctx); err != nil {
		return err
	}
	conn.Session.WakeAcknowledged()

	// the wake banner is not OI traffic
	if err := conn.Serial.Flush(); err != nil {
		return err
	}
	fmt.Printf("Wake pulse sent, vehicle mode %s\n", conn.Session.Mode())
	return nil
}
