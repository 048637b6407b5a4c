// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/oistat/internal/config"
	"github.com/Thermoquad/oistat/pkg/oi"
)

var songUnchecked bool

var songCmd = &cobra.Command{
	Use:   "song",
	Short: "Load and play songs from the config file",
	Long: `Manage the vehicle's 16 song slots using the songs section of the config file.

  songs:
    - slot: 0
      name: beep
      notes:
        - {note: 72, duration: 16}

Notes are MIDI numbers 31-127 (0 is a rest) and durations are in 1/64 s.`,
}

var songListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the configured songs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Songs) == 0 {
			fmt.Println("No songs configured")
			return nil
		}
		for _, s := range cfg.Songs {
			notes := s.OINotes()
			fmt.Printf("Slot %2d  %-16s %2d notes  %v\n", s.Slot, s.Name, len(notes), songLength(notes))
			fmt.Printf("         %s\n", oi.FormatNotes(notes))
		}
		return nil
	},
}

var songDefineCmd = &cobra.Command{
	Use:   "define [slot...]",
	Short: "Send configured songs to the vehicle",
	Long:  "Send the configured songs for the given slots, or every configured song.",
	RunE:  runSongDefine,
}

var songPlayCmd = &cobra.Command{
	Use:   "play slot",
	Short: "Define the configured song for slot and play it",
	Long: `Define the configured song for slot (if any) and play it.

The vehicle only plays songs in Safe or Full mode. A session started by this
tool is in Passive mode, so play is refused unless --unchecked is given, which
sends SAFE and PLAY without checking the tracked mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runSongPlay,
}

func init() {
	rootCmd.AddCommand(songCmd)
	songCmd.AddCommand(songListCmd, songDefineCmd, songPlayCmd)
	songPlayCmd.Flags().BoolVar(&songUnchecked, "unchecked", false, "Send SAFE and PLAY regardless of the tracked mode")
}

func songLength(notes []oi.Note) time.Duration {
	return time.Duration(oi.Duration(notes)) * time.Second / 64
}

func selectSongs(args []string) ([]config.SongConfig, error) {
	if len(args) == 0 {
		return cfg.Songs, nil
	}
	var songs []config.SongConfig
	for _, a := range args {
		slot, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q", a)
		}
		s, ok := cfg.Song(slot)
		if !ok {
			return nil, fmt.Errorf("no song configured for slot %d", slot)
		}
		songs = append(songs, s)
	}
	return songs, nil
}

func runSongDefine(cmd *cobra.Command, args []string) error {
	songs, err := selectSongs(args)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return fmt.Errorf("no songs configured")
	}

	ctx := cmd.Context()
	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Session.Start(ctx); err != nil {
		return err
	}
	for _, s := range songs {
		if err := conn.Session.DefineSong(ctx, s.Slot, s.OINotes()); err != nil {
			return fmt.Errorf("slot %d: %w", s.Slot, err)
		}
		fmt.Printf("Defined slot %d (%s)\n", s.Slot, s.Name)
	}
	return nil
}

func runSongPlay(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q", args[0])
	}
	// checked before any byte goes out
	if _, err := oi.NewSongStore().Play(slot); err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := OpenConnection(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Session.Start(ctx); err != nil {
		return err
	}
	if s, ok := cfg.Song(slot); ok {
		if err := conn.Session.DefineSong(ctx, slot, s.OINotes()); err != nil {
			return err
		}
		fmt.Printf("Defined slot %d (%s), %v\n", slot, s.Name, songLength(s.OINotes()))
	}

	if !songUnchecked {
		if err := conn.Session.PlaySong(ctx, slot); err != nil {
			if oi.IsModeViolation(err) {
				return fmt.Errorf("%w (use --unchecked to send SAFE first)", err)
			}
			return err
		}
	} else {
		for _, c := range []oi.Command{oi.SafeMode{}, oi.PlaySong{Slot: slot}} {
			if err := conn.Session.SendUnchecked(ctx, c); err != nil {
				return err
			}
		}
	}
	fmt.Printf("Playing slot %d\n", slot)
	return nil
}
