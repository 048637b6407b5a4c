// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/pkg/oi"
	"github.com/Thermoquad/oistat/pkg/transport"
)

var queryTimeout int

var queryCmd = &cobra.Command{
	Use:   "query packet...",
	Short: "Request sensor packets once and print the readings",
	Long: `Put the vehicle in Passive mode, request the given packets and wait for the
reply until timeout. Packets are given by number or name.

A single packet is requested with SENSORS (142), several with QUERY_LIST (149).
Requests that go unanswered within one read timeout are repeated.

Exit codes:
  0 - Readings received before timeout
  1 - Timeout reached without a complete reply
  2 - Connection error

Useful for testing the cable, the baud rate and the WebSocket bridge.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 5, "Timeout in seconds to wait for a reply")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ids, err := parsePackets(args)
	if err != nil {
		return err
	}
	// rejects invalid lists before the port is opened
	if _, err := oi.ExpectedWidth(ids); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(queryTimeout)*time.Second)
	defer cancel()

	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("oistat - Sensor Query\n")
	fmt.Printf("Connection: %s\n", conn.Info)
	fmt.Printf("Timeout: %d seconds\n\n", queryTimeout)

	if err := conn.Session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "START failed: %v\n", err)
		os.Exit(2)
	}

	type result struct {
		readings []oi.Reading
		err      error
	}
	done := make(chan result, 1)

	// WebSocket reads cannot be interrupted, so the wait happens here
	go func() {
		for {
			var r result
			if len(ids) == 1 {
				r.readings, r.err = conn.Session.Query(ctx, ids[0])
			} else {
				r.readings, r.err = conn.Session.QueryList(ctx, ids)
			}
			if transport.IsTimeout(r.err) && ctx.Err() == nil {
				continue
			}
			done <- r
			return
		}
	}()

	select {
	case r := <-done:
		switch {
		case r.err == nil:
		case errors.Is(r.err, context.DeadlineExceeded), transport.IsTimeout(r.err):
			fmt.Fprintf(os.Stderr, "TIMEOUT: No reply received within %d seconds\n", queryTimeout)
			os.Exit(1)
		default:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", r.err)
			os.Exit(2)
		}

		fmt.Printf("SUCCESS: Received %d readings\n", len(r.readings))
		for _, reading := range r.readings {
			fmt.Printf("  %s\n", oi.FormatReading(reading))
		}
		for _, v := range oi.ValidateReadings(r.readings) {
			fmt.Printf("  WARNING: %s\n", v.Message)
		}
		return nil

	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "TIMEOUT: No reply received within %d seconds\n", queryTimeout)
		os.Exit(1)
	}

	return nil
}
