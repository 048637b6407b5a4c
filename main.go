// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// oistat - iRobot Create Open Interface tool
//
// Sends Open Interface commands and decodes sensor streams over a serial
// port or a WebSocket bridge.

package main

import (
	"os"

	"github.com/Thermoquad/oistat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
