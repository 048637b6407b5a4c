// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/pkg/oi"
	"github.com/Thermoquad/oistat/pkg/recording"
)

var (
	replayRealtime bool
	replayValidate bool
)

var replayCmd = &cobra.Command{
	Use:   "replay file",
	Short: "Print the frames of a recording",
	Long: `Decode a recording made with the record command and print its frames in the
raw_log format. With --validate, frames are checked for anomalous values and a
statistics summary is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Pace output at the recorded frame times")
	replayCmd.Flags().BoolVar(&replayValidate, "validate", false, "Validate frames and print statistics")
}

func runReplay(cmd *cobra.Command, args []string) error {
	r, err := recording.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	rate, _ := oi.BaudRate(h.BaudCode)
	fmt.Printf("oistat - Replay\n")
	fmt.Printf("Session: %s\n", h.Session)
	fmt.Printf("Started: %s\n", h.Started.Format(time.RFC3339))
	fmt.Printf("Baud: %d\n", rate)
	fmt.Printf("Packets: %v\n\n", h.Subscription())

	stats := oi.NewStatistics()
	var last time.Time
	for frame, ferr := range r.Frames() {
		if ferr != nil && !oi.IsFraming(ferr) {
			return ferr
		}
		if ferr != nil {
			stats.Update(nil, ferr, nil)
			fmt.Printf("[ERROR] %v\n", ferr)
			continue
		}

		if replayRealtime && !last.IsZero() {
			time.Sleep(frame.Timestamp.Sub(last))
		}
		last = frame.Timestamp

		fmt.Print(oi.FormatFrame(frame))
		if replayValidate {
			v := oi.ValidateFrame(frame)
			stats.Update(frame, nil, v)
			for _, e := range v {
				fmt.Printf("  \033[1;33mANOMALY:\033[0m %s\n", e.Message)
			}
		}
	}

	if replayValidate {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return nil
}
