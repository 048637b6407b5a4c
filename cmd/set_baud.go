// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/pkg/oi"
)

// the vehicle needs 100ms before it listens at the new rate
var baudSettle = 100 * time.Millisecond

var setBaudCmd = &cobra.Command{
	Use:   "set_baud rate",
	Short: "Change the vehicle's baud rate and follow it on the serial port",
	Long: `Send BAUD (129) with the code for rate, wait for the vehicle to switch and then
reopen the local port at the new rate. A mode request confirms the link.

--baud must be the rate the vehicle is using now. The vehicle returns to its
default rate when it is power cycled.

Serial connections only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetBaud,
}

func init() {
	rootCmd.AddCommand(setBaudCmd)
}

// switchBaud sends SetBaud, waits for the vehicle to settle and then moves
// the host side of the link with setLocal.
func switchBaud(ctx context.Context, conn *Connection, rate int, setLocal func(int) error) error {
	code, ok := oi.BaudCode(rate)
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", rate)
	}
	if err := conn.Session.Send(ctx, oi.SetBaud{Code: code}); err != nil {
		return err
	}

	t := time.NewTimer(baudSettle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return setLocal(rate)
}

func runSetBaud(cmd *cobra.Command, args []string) error {
	rate, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid baud rate %q", args[0])
	}

	ctx := cmd.Context()
	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if conn.Serial == nil {
		return errors.New("set_baud needs a serial connection")
	}

	if err := conn.Session.Start(ctx); err != nil {
		return err
	}
	if err := switchBaud(ctx, conn, rate, conn.Serial.SetBaudRate); err != nil {
		return err
	}
	if err := conn.Serial.Flush(); err != nil {
		return err
	}
	fmt.Printf("Switched %s from %d to %d baud\n", conn.Serial.PortName(), cfg.Serial.Baud, rate)

	readings, err := conn.Session.Query(ctx, oi.PacketOIMode)
	if err != nil {
		return fmt.Errorf("no reply at %d baud: %w", rate, err)
	}
	mode := (&oi.Sensors{OIMode: uint8(readings[0].Value)}).Mode()
	fmt.Printf("Vehicle answered in %s mode\n", mode)
	return nil
}
