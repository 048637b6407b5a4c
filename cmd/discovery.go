// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/oistat/pkg/oi"
	"github.com/Thermoquad/oistat/pkg/transport"
)

var (
	discoveryTimeout int
	discoveryProbe   bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List serial ports and find the ones a vehicle answers on",
	Long: `List the serial ports on this machine.

With --probe, each port is opened at the configured baud rate, START is sent
and packet 35 (OI_MODE) is requested. Ports that answer with a valid mode are
reported as vehicles. Probing writes to every port, so only use it on
machines where that is safe.

Examples:
  # List ports
  oistat discovery

  # Find the Create at 115200 baud
  oistat discovery --probe --baud 115200

Exit codes:
  0 - Discovery successful (at least one port, or one vehicle with --probe)
  1 - Discovery failed (no ports or no vehicle)
  2 - Port enumeration error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 1, "Timeout in seconds per probed port")
	discoveryCmd.Flags().BoolVar(&discoveryProbe, "probe", false, "Send a mode request on every port")
}

type discoveredVehicle struct {
	port string
	mode oi.Mode
	rtt  time.Duration
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports, err := transport.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Port enumeration error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("oistat - Vehicle Discovery\n")
	fmt.Printf("Ports: %d\n\n", len(ports))
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	if !discoveryProbe {
		if len(ports) == 0 {
			os.Exit(1)
		}
		return nil
	}

	fmt.Printf("\nProbing at %d baud...\n", cfg.Serial.Baud)
	var found []discoveredVehicle
	for _, p := range ports {
		v, err := probePort(cmd.Context(), p)
		if err != nil {
			logger.Debug("probe failed", zap.String("port", p), zap.Error(err))
			fmt.Printf("  %s: no answer\n", p)
			continue
		}
		fmt.Printf("  %s: vehicle in %s mode (rtt %v)\n", p, v.mode, v.rtt.Round(time.Millisecond))
		found = append(found, v)
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Vehicles found: %d\n", len(found))
	if len(found) == 0 {
		fmt.Printf("No vehicle answered. Check the cable, power and --baud.\n")
		os.Exit(1)
	}
	return nil
}

func probePort(ctx context.Context, name string) (discoveredVehicle, error) {
	port, err := transport.OpenSerial(transport.SerialConfig{
		Port:     name,
		BaudRate: cfg.Serial.Baud,
		Timeout:  time.Duration(discoveryTimeout) * time.Second,
	})
	if err != nil {
		return discoveredVehicle{}, err
	}
	conn, err := newConnection(port, port, name, logger)
	if err != nil {
		return discoveredVehicle{}, err
	}
	defer conn.Close()

	if err := port.Flush(); err != nil {
		return discoveredVehicle{}, err
	}

	start := time.Now()
	if err := conn.Session.Start(ctx); err != nil {
		return discoveredVehicle{}, err
	}
	readings, err := conn.Session.Query(ctx, oi.PacketOIMode)
	if err != nil {
		return discoveredVehicle{}, err
	}
	if v := oi.ValidateReadings(readings); len(v) > 0 {
		return discoveredVehicle{}, &v[0]
	}
	mode := (&oi.Sensors{OIMode: uint8(readings[0].Value)}).Mode()
	return discoveredVehicle{port: name, mode: mode, rtt: time.Since(start)}, nil
}
