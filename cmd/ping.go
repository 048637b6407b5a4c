// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/pkg/oi"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trips by requesting the OI mode packet",
	Long: `Request packet 35 (OI_MODE) repeatedly and report the round trip time.

This command tests bidirectional communication through the cable or the
WebSocket bridge. The vehicle answers sensor requests in Passive, Safe and
Full modes, so START is sent first.

This is useful for verifying:
  - the serial port and baud rate are right
  - HTTP Basic authentication to the bridge works
  - the vehicle is awake and answering

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 2, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("oistat - Ping Test\n")
	fmt.Printf("Connection: %s\n", conn.Info)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	if err := conn.Session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "START failed: %v\n", err)
		os.Exit(2)
	}

	successCount := 0
	sent := 0
	var total time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)
		sent++

		type reply struct {
			readings []oi.Reading
			err      error
		}
		replies := make(chan reply, 1)
		startTime := time.Now()
		go func() {
			r, err := conn.Session.Query(ctx, oi.PacketOIMode)
			replies <- reply{r, err}
		}()

		select {
		case r := <-replies:
			if r.err != nil {
				fmt.Printf("FAILED: %v\n", r.err)
				break
			}
			rtt := time.Since(startTime)
			total += rtt
			mode := (&oi.Sensors{OIMode: uint8(r.readings[0].Value)}).Mode()
			fmt.Printf("reply mode=%s, rtt=%v\n", mode, rtt.Round(time.Millisecond))
			successCount++

		case <-time.After(time.Duration(pingTimeout) * time.Second):
			// the outstanding request still holds the session
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			i = pingCount
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		sent, successCount, float64(sent-successCount)/float64(sent)*100)
	if successCount > 0 {
		fmt.Printf("average rtt %v\n", (total / time.Duration(successCount)).Round(time.Millisecond))
	}

	if successCount < pingCount {
		os.Exit(1)
	}
	return nil
}
