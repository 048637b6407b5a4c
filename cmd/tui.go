// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/oistat/pkg/oi"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// eventLog keeps the most recent entries.
type eventLog struct {
	entries []errorLogEntry
	max     int
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// tail returns at most n of the newest entries.
func (l *eventLog) tail(n int) []errorLogEntry {
	if n < 0 || len(l.entries) <= n {
		return l.entries
	}
	return l.entries[len(l.entries)-n:]
}

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	err        lipgloss.Style
	warning    lipgloss.Style
	box        lipgloss.Style
	focusedBox lipgloss.Style
}

func newStyles() styles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		value:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		err:        lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		box:        box,
		focusedBox: box.BorderForeground(lipgloss.Color("12")),
	}
}

// formatElapsed formats a duration as "1 hour, 2 minutes and 3 seconds".
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	units := []struct {
		name string
		size int
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	var parts []string
	for _, u := range units {
		n := total / u.size
		total %= u.size
		if n == 0 {
			continue
		}
		if n == 1 {
			parts = append(parts, "1 "+u.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func renderEventLog(s styles, log *eventLog, height, width int) string {
	var b strings.Builder
	entries := log.tail(height)
	if len(entries) == 0 {
		b.WriteString(s.header.Render("  (no events yet)"))
	}
	for _, entry := range entries {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			fmt.Fprintf(&b, "%s %s\n", s.header.Render(timestamp), s.err.Render("x "+entry.message))
		} else {
			fmt.Fprintf(&b, "%s %s\n", s.header.Render(timestamp), s.warning.Render("i "+entry.message))
		}
	}
	return s.box.Width(width).Render(b.String())
}

func renderStatistics(s styles, stats *oi.Statistics) string {
	stats.CalculateRates()
	var validPercent, errorPercent float64
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidFrames) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(stats.Errors()) * 100.0 / float64(stats.TotalFrames)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		s.label.Render("Total:"), s.value.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		s.label.Render("Valid:"), s.value.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidFrames, validPercent)),
		s.label.Render("Errors:"), s.err.Render(fmt.Sprintf("%d (%.1f%%)", stats.Errors(), errorPercent)),
	)

	if stats.ChecksumErrors > 0 || stats.FramingErrors > 0 {
		fmt.Fprintf(&b, "%s %s   %s %s\n",
			s.label.Render("Checksum Errors:"), s.err.Render(fmt.Sprintf("%d", stats.ChecksumErrors)),
			s.label.Render("Framing Errors:"), s.err.Render(fmt.Sprintf("%d", stats.FramingErrors)),
		)
	}

	if stats.AnomalousValues > 0 {
		fmt.Fprintf(&b, "%s %s (%s: %d, %s: %d, %s: %d)\n",
			s.label.Render("Anomalous:"), s.warning.Render(fmt.Sprintf("%d", stats.AnomalousValues)),
			s.header.Render("invalid mode"), stats.InvalidModes,
			s.header.Render("velocity"), stats.VelocityRange,
			s.header.Render("other"), stats.OtherAnomalies,
		)
	}

	errRate := s.value
	if stats.ErrorRate > 0 {
		errRate = s.err
	}
	fmt.Fprintf(&b, "%s %s   %s %s",
		s.label.Render("Frame Rate:"), s.value.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		s.label.Render("Error Rate:"), errRate.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate)),
	)
	return s.box.Render(b.String())
}

// TUI model
type model struct {
	connInfo     string
	packets      []oi.PacketID
	showAll      bool
	stats        *oi.Statistics
	log          *eventLog
	synchronized bool
	dropped      int
	width        int
	height       int
	quitting     bool
	ended        bool
	lastFrame    *oi.Frame
}

type tickMsg time.Time

func initialModel(connInfo string, packets []oi.PacketID, showAll bool) model {
	return model{
		connInfo: connInfo,
		packets:  packets,
		showAll:  showAll,
		stats:    oi.NewStatistics(),
		log:      &eventLog{max: 100},
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case streamEndMsg:
		m.ended = true
		if msg.err != nil {
			m.log.add(fmt.Sprintf("Stream ended: %v", msg.err), true)
		} else {
			m.log.add("Stream ended", false)
		}

	case streamMsg:
		m.handleStream(msg)
	}

	return m, nil
}

func (m *model) handleStream(msg streamMsg) {
	if msg.err != nil {
		if m.synchronized {
			m.stats.Update(nil, msg.err, nil)
			m.log.add(fmt.Sprintf("FRAME ERROR: %v", msg.err), true)
		} else {
			m.dropped++
		}
		return
	}

	if !m.synchronized {
		m.synchronized = true
		if m.dropped > 0 {
			m.log.add(fmt.Sprintf("Synchronized after dropping %d frames", m.dropped), false)
		} else {
			m.log.add("Synchronized", false)
		}
	}

	m.stats.Update(msg.frame, nil, msg.validationErrors)
	m.lastFrame = msg.frame

	if len(msg.validationErrors) > 0 {
		for _, err := range msg.validationErrors {
			m.log.add(fmt.Sprintf("%s: %s", err.Type, err.Message), true)
		}
	} else if m.showAll {
		m.log.add(fmt.Sprintf("frame len=%d (valid)", len(msg.frame.Raw)), false)
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	st := newStyles()

	var s strings.Builder
	s.WriteString(st.title.Render("OISTAT - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(st.header.Render(fmt.Sprintf("%s | Mode: %s | Up %s | Press 'q' to quit",
		m.connInfo, mode, formatElapsed(time.Since(m.stats.StartTime)))))
	s.WriteString("\n\n")

	switch {
	case m.ended:
		s.WriteString(st.err.Render("Stream ended"))
	case !m.synchronized:
		s.WriteString(st.warning.Render("Waiting for the first valid frame..."))
	default:
		s.WriteString(st.value.Render("Synchronized"))
		if m.dropped > 0 {
			s.WriteString(st.header.Render(fmt.Sprintf(" (dropped %d frames)", m.dropped)))
		}
	}
	s.WriteString("\n\n")

	s.WriteString(renderStatistics(st, m.stats))
	s.WriteString("\n\n")

	if m.lastFrame != nil {
		s.WriteString(st.label.Render("Latest Frame:"))
		s.WriteString("\n")
		var b strings.Builder
		for _, r := range m.lastFrame.Readings {
			b.WriteString(oi.FormatReading(r))
			b.WriteString("\n")
		}
		s.WriteString(st.box.Render(strings.TrimSuffix(b.String(), "\n")))
		s.WriteString("\n\n")
	}

	s.WriteString(st.label.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 15 - len(m.packets)
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(renderEventLog(st, m.log, logHeight, m.width-4))

	return s.String()
}
