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
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Thermoquad/oistat/pkg/oi"
	"github.com/Thermoquad/oistat/pkg/recording"
)

var (
	recordDuration int
	recordDir      string
)

var recordCmd = &cobra.Command{
	Use:   "record [packet...]",
	Short: "Record the sensor stream to a file",
	Long: `Start the sensor stream and write every valid frame to a CBOR recording in
recording.dir (or --dir). Frames rejected by the decoder are counted but not
stored. Stop with Ctrl+C or --duration.

Replay a recording with the replay command.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().IntVar(&recordDuration, "duration", 0, "Stop after N seconds (0 = until Ctrl+C)")
	recordCmd.Flags().StringVar(&recordDir, "dir", "", "Directory for the recording (default from config)")
}

func runRecord(cmd *cobra.Command, args []string) (err error) {
	ids, err := parsePackets(args)
	if err != nil {
		return err
	}
	dir := recordDir
	if dir == "" {
		dir = cfg.Recording.Dir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(recordDuration)*time.Second)
		defer cancel()
	}

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

	w, path, err := recording.Create(dir, ids, baudCode())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
		fmt.Printf("\n%d frames written to %s\n", w.Count(), path)
	}()

	fmt.Printf("oistat - Stream Recorder\n")
	fmt.Printf("Connection: %s\n", conn.Info)
	fmt.Printf("Packets: %v\n", ids)
	fmt.Printf("Session: %s\n", w.Header().Session)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	rejected := 0
	for frame, ferr := range conn.Session.Frames(ctx) {
		if ferr != nil {
			if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
				break
			}
			if oi.IsFraming(ferr) {
				rejected++
				logger.Debug("frame rejected", zap.Error(ferr))
				continue
			}
			return ferr
		}
		if err := w.Write(frame); err != nil {
			return err
		}
		if n := w.Count(); n%100 == 0 {
			fmt.Printf("\r%d frames, %d rejected", n, rejected)
		}
	}
	return nil
}

func baudCode() int {
	code, _ := oi.BaudCode(cfg.Serial.Baud)
	return code
}
