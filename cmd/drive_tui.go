// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/oistat/pkg/oi"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	defaultSpeed = 200 // mm/s for arrow keys
	turnSpeed    = 100 // mm/s when spinning in place
)

// Focus states. Arrow keys drive only while no input has focus.
const (
	focusVelocity = iota
	focusRadius
	focusKeys
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// driveModel is the Bubble Tea model for the drive TUI
type driveModel struct {
	connMgr  *connectionManager
	connInfo string

	sensors oi.Sensors
	stats   *oi.Statistics
	log     *eventLog

	velocityInput textinput.Model
	radiusInput   textinput.Model
	focusedField  int

	// last drive command sent
	velocity int
	radius   int

	width          int
	height         int
	synchronized   bool
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type driveTickMsg struct{}

type driveBatchMsg struct {
	messages []streamMsg
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newNumberInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 6
	ti.Width = 8
	ti.Validate = func(s string) error {
		if s == "" || s == "-" {
			return nil
		}
		_, err := strconv.Atoi(s)
		return err
	}
	return ti
}

func initialDriveModel(connMgr *connectionManager, connInfo string) driveModel {
	m := driveModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		stats:         oi.NewStatistics(),
		log:           &eventLog{max: 100},
		velocityInput: newNumberInput("200"),
		radiusInput:   newNumberInput("32768"),
		focusedField:  focusKeys,
		radius:        oi.RadiusStraight,
		width:         80,
		height:        24,
	}
	if connMgr.unchecked {
		m.log.add("Unchecked mode: SAFE sent, mode checks bypassed", false)
	} else {
		m.log.add(fmt.Sprintf("Tracked mode %s: drive needs Safe or Full", connMgr.getConn().Session.Mode()), false)
	}
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m driveModel) Init() tea.Cmd {
	return driveTickCmd()
}

func driveTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return driveTickMsg{}
	})
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case driveTickMsg:
		m.stats.CalculateRates()
		return m, driveTickCmd()

	case driveBatchMsg:
		for _, data := range msg.messages {
			m.processStream(data)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.synchronized = false
		m.log.add(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.velocity, m.radius = 0, oi.RadiusStraight
		m.log.add("Reconnected - stream restarted", false)
	}

	return m, nil
}

func (m driveModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.sendTyped()

	case "esc":
		m = m.cycleFocus(focusKeys - m.focusedField)
		return m.drive(0, oi.RadiusStraight)
	}

	if m.focusedField == focusKeys {
		switch msg.String() {
		case "up":
			return m.drive(defaultSpeed, oi.RadiusStraight)
		case "down":
			return m.drive(-defaultSpeed, oi.RadiusStraight)
		case "left":
			return m.drive(turnSpeed, oi.RadiusSpinCCW)
		case "right":
			return m.drive(turnSpeed, oi.RadiusSpinCW)
		case " ":
			return m.drive(0, oi.RadiusStraight)
		case "f":
			m.send(oi.FullMode{}, "FULL")
			return m, nil
		case "p":
			m.toggleStream()
			return m, nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case focusVelocity:
		m.velocityInput, cmd = m.velocityInput.Update(msg)
	case focusRadius:
		m.radiusInput, cmd = m.radiusInput.Update(msg)
	}
	return m, cmd
}

func (m driveModel) cycleFocus(delta int) driveModel {
	n := focusKeys + 1
	m.focusedField = (m.focusedField + delta + n) % n

	m.velocityInput.Blur()
	m.radiusInput.Blur()
	switch m.focusedField {
	case focusVelocity:
		m.velocityInput.Focus()
	case focusRadius:
		m.radiusInput.Focus()
	}
	return m
}

func (m driveModel) View() string {
	if m.quitting {
		return "Stopping and shutting down...\n"
	}
	st := newStyles()
	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)
	focusedButtonStyle := buttonStyle.Background(lipgloss.Color("10"))

	var s strings.Builder

	// Header
	s.WriteString(st.title.Render("OISTAT DRIVE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = st.warning.Render("RECONNECTING...")
	}
	s.WriteString(st.header.Render(fmt.Sprintf("| %s | q=quit Tab=switch arrows=drive space=stop p=pause", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (control) | right panel (sensors)
	leftWidth := 34
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	controlStyle := st.box.Width(leftWidth)
	if m.focusedField != focusKeys {
		controlStyle = st.focusedBox.Width(leftWidth)
	}
	controlPanel := controlStyle.Render(m.renderControlPanel(st, buttonStyle, focusedButtonStyle))
	sensorPanel := st.box.Width(rightWidth).Render(m.renderSensors(st))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, controlPanel, " ", sensorPanel))
	s.WriteString("\n\n")

	s.WriteString(renderStatistics(st, m.stats))
	s.WriteString("\n\n")

	s.WriteString(st.label.Render("EVENTS"))
	s.WriteString("\n")
	s.WriteString(renderEventLog(st, m.log, 8, m.width-4))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func inputView(ti textinput.Model, focused bool) string {
	if focused {
		return ti.View()
	}
	val := ti.Value()
	if val == "" {
		val = ti.Placeholder
	}
	return fmt.Sprintf("[%s]", val)
}

func (m driveModel) renderControlPanel(st styles, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder

	mode := m.connMgr.getConn().Session.Mode().String()
	if m.connMgr.unchecked {
		mode += " (unchecked)"
	}
	fmt.Fprintf(&s, "%s %s\n", st.label.Render("Tracked mode:"), st.value.Render(mode))
	fmt.Fprintf(&s, "%s %s\n\n", st.label.Render("Driving:"),
		st.value.Render(oi.FormatCommand(oi.Drive{Velocity: m.velocity, Radius: m.radius})))

	fmt.Fprintf(&s, "%s %s mm/s\n", st.label.Render("Velocity:"), inputView(m.velocityInput, m.focusedField == focusVelocity))
	fmt.Fprintf(&s, "%s %s mm\n\n", st.label.Render("Radius:  "), inputView(m.radiusInput, m.focusedField == focusRadius))

	btnText := "[ Drive ]"
	if m.focusedField != focusKeys {
		s.WriteString(focusedButtonStyle.Render(btnText))
	} else {
		s.WriteString(buttonStyle.Render(btnText))
	}
	return s.String()
}

func indicator(st styles, name string, on bool) string {
	if on {
		return st.err.Render(name)
	}
	return st.header.Render(name)
}

func (m driveModel) renderSensors(st styles) string {
	var s strings.Builder
	s.WriteString(st.label.Render("SENSORS"))
	if !m.synchronized {
		s.WriteString(" " + st.warning.Render("waiting for stream..."))
		return s.String()
	}
	s.WriteString("\n")

	sn := m.sensors
	fmt.Fprintf(&s, "%s %s   %s %s\n",
		st.label.Render("OI mode:"), st.value.Render(sn.Mode().String()),
		st.label.Render("Charging:"), st.value.Render(oi.FormatReading(oi.Reading{ID: oi.PacketChargingState, Value: int(sn.ChargingState)})))
	fmt.Fprintf(&s, "%s %s   %s %s   %s %s\n",
		st.label.Render("Battery:"), st.value.Render(fmt.Sprintf("%.2f V", float64(sn.Voltage)/1000)),
		st.label.Render("Current:"), st.value.Render(fmt.Sprintf("%d mA", sn.Current)),
		st.label.Render("Temp:"), st.value.Render(fmt.Sprintf("%d C", sn.BatteryTemperature)))
	fmt.Fprintf(&s, "%s %s\n",
		st.label.Render("Charge:"), st.value.Render(fmt.Sprintf("%d / %d mAh", sn.BatteryCharge, sn.BatteryCapacity)))
	fmt.Fprintf(&s, "%s %s   %s %s\n",
		st.label.Render("Requested:"), st.value.Render(fmt.Sprintf("%d mm/s", sn.RequestedVelocity)),
		st.label.Render("Wheels L/R:"), st.value.Render(fmt.Sprintf("%d / %d mm/s", sn.RequestedLeftVel, sn.RequestedRightVel)))
	fmt.Fprintf(&s, "%s %s %s %s %s %s %s %s\n",
		indicator(st, "BUMP-L", sn.BumpsWheelDrops&oi.BumpLeft != 0),
		indicator(st, "BUMP-R", sn.BumpsWheelDrops&oi.BumpRight != 0),
		indicator(st, "CLIFF-L", sn.CliffLeft),
		indicator(st, "CLIFF-FL", sn.CliffFrontLeft),
		indicator(st, "CLIFF-FR", sn.CliffFrontRight),
		indicator(st, "CLIFF-R", sn.CliffRight),
		indicator(st, "WALL", sn.Wall),
		indicator(st, "VWALL", sn.VirtualWall))
	return strings.TrimSuffix(s.String(), "\n")
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *driveModel) processStream(msg streamMsg) {
	if msg.err != nil {
		if m.synchronized {
			m.stats.Update(nil, msg.err, nil)
			m.log.add(fmt.Sprintf("FRAME ERROR: %v", msg.err), true)
		}
		return
	}

	if !m.synchronized {
		m.synchronized = true
		m.log.add("Stream synchronized", false)
	}
	m.stats.Update(msg.frame, nil, msg.validationErrors)

	wasBumped := m.sensors.Bumped()
	wasCliff := m.sensors.AnyCliff()
	m.sensors.Apply(msg.frame.Readings)

	if m.sensors.Bumped() && !wasBumped {
		m.log.add("Bumper pressed", true)
	}
	if m.sensors.AnyCliff() && !wasCliff {
		m.log.add("Cliff detected", true)
	}
	for _, err := range msg.validationErrors {
		m.log.add(fmt.Sprintf("%s: %s", err.Type, err.Message), true)
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// send reports whether cmd went out; failures are logged.
func (m *driveModel) send(cmd oi.Command, label string) bool {
	if m.connectionLost {
		m.log.add("Cannot send command: connection lost", true)
		return false
	}
	if err := m.connMgr.send(cmd); err != nil {
		m.log.add(fmt.Sprintf("%s refused: %v", label, err), true)
		return false
	}
	m.log.add("Sent "+oi.FormatCommand(cmd), false)
	return true
}

func (m *driveModel) toggleStream() {
	if m.connectionLost {
		m.log.add("Cannot change stream: connection lost", true)
		return
	}
	paused, err := m.connMgr.toggleStream()
	switch {
	case err != nil:
		m.log.add(fmt.Sprintf("Stream toggle failed: %v", err), true)
	case paused:
		m.log.add("Stream paused", false)
	default:
		m.log.add("Stream resumed", false)
	}
}

func (m driveModel) drive(velocity, radius int) (tea.Model, tea.Cmd) {
	if m.send(oi.Drive{Velocity: velocity, Radius: radius}, "DRIVE") {
		m.velocity, m.radius = velocity, radius
	}
	return m, nil
}

func parseInput(ti textinput.Model) (int, error) {
	val := ti.Value()
	if val == "" {
		val = ti.Placeholder
	}
	return strconv.Atoi(val)
}

func (m driveModel) sendTyped() (tea.Model, tea.Cmd) {
	velocity, err := parseInput(m.velocityInput)
	if err != nil {
		m.log.add(fmt.Sprintf("Invalid velocity: %s", m.velocityInput.Value()), true)
		return m, nil
	}
	radius, err := parseInput(m.radiusInput)
	if err != nil {
		m.log.add(fmt.Sprintf("Invalid radius: %s", m.radiusInput.Value()), true)
		return m, nil
	}
	// range errors come back from the encoder
	return m.drive(velocity, radius)
}
