// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/yali/pkg/yali"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// requestSender is the part of yali.Client the monitor needs
type requestSender interface {
	Send(p *yali.Packet) error
}

// monitorEntry is one light or shutter row
type monitorEntry struct {
	kind    byte // yali.HistoryKindLight or yali.HistoryKindShutter
	module  byte
	channel byte
	name    string
	value   int // light state, or shutter position once reported
	lo, hi  int // shutter interval from the database
	updated time.Time
}

func (e monitorEntry) isLight() bool {
	return e.kind == yali.HistoryKindLight
}

func (e monitorEntry) row() table.Row {
	kind, value := "Light", yali.FormatState(e.value)
	if !e.isLight() {
		kind = "Shutter"
		if e.updated.IsZero() {
			value = fmt.Sprintf("%d..%d %%", e.lo, e.hi)
		}
	}
	updated := "-"
	if !e.updated.IsZero() {
		updated = e.updated.Format("15:04:05")
	}
	return table.Row{kind, e.name, fmt.Sprintf("M%02d/%d", e.module, e.channel), value, updated}
}

type monitorKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Brighter key.Binding
	Darker   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Brighter, k.Darker, k.Help, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.Brighter, k.Darker},
		{k.Help, k.Quit},
	}
}

var monitorKeys = monitorKeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
	Brighter: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "brighter")),
	Darker:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "darker")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// monitorModel is the Bubble Tea model of the monitor command
type monitorModel struct {
	sender   requestSender
	server   string
	version  string
	entries  []monitorEntry
	table    table.Model
	help     help.Model
	log      eventLog
	closed   bool
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type reportMsg struct {
	packet *yali.Packet
}

type serverErrorMsg struct {
	err *yali.ServerError
}

type gatewayClosedMsg struct {
	err error
}

type sendErrMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(s *session) monitorModel {
	return newMonitorModel(s.client, serverAddr, s.version.String(), s.lights, s.shutters)
}

func newMonitorModel(sender requestSender, server, version string, lights []yali.LightRecord, shutters []yali.ShutterRecord) monitorModel {
	entries := make([]monitorEntry, 0, len(lights)+len(shutters))
	for _, l := range lights {
		entries = append(entries, monitorEntry{
			kind:    yali.HistoryKindLight,
			module:  l.Module,
			channel: l.Output,
			name:    l.Name,
			value:   l.State,
		})
	}
	for _, sh := range shutters {
		entries = append(entries, monitorEntry{
			kind:    yali.HistoryKindShutter,
			module:  sh.Module,
			channel: sh.Run,
			name:    sh.Name,
			value:   sh.Position(),
			lo:      sh.Min,
			hi:      sh.Max,
		})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Kind", Width: 8},
			{Title: "Name", Width: 24},
			{Title: "Address", Width: 8},
			{Title: "State", Width: 10},
			{Title: "Updated", Width: 9},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	m := monitorModel{
		sender:  sender,
		server:  server,
		version: version,
		entries: entries,
		table:   t,
		help:    help.New(),
		log:     eventLog{max: 100},
		width:   80,
		height:  24,
	}
	m.refreshRows()
	return m
}

func (m *monitorModel) refreshRows() {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		rows[i] = e.row()
	}
	m.table.SetRows(rows)
}

func (m *monitorModel) find(kind, module, channel byte) int {
	for i, e := range m.entries {
		if e.kind == kind && e.module == module && e.channel == channel {
			return i
		}
	}
	return -1
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, monitorKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, monitorKeys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, monitorKeys.Toggle):
			return m, m.toggleSelected()
		case key.Matches(msg, monitorKeys.Brighter):
			return m, m.dimSelected(10)
		case key.Matches(msg, monitorKeys.Darker):
			return m, m.dimSelected(-10)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Title, header, log and help take 14 rows
		m.table.SetHeight(max(3, min(len(m.entries)+1, msg.Height-14)))
		return m, nil

	case reportMsg:
		m.handleReport(msg.packet)
		return m, nil

	case serverErrorMsg:
		m.log.add(msg.err.Error(), true)
		return m, nil

	case sendErrMsg:
		m.log.add(fmt.Sprintf("Send failed: %v", msg.err), true)
		return m, nil

	case gatewayClosedMsg:
		m.closed = true
		m.log.add(fmt.Sprintf("Connection to gateway lost: %v", msg.err), true)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *monitorModel) handleReport(p *yali.Packet) {
	var kind byte
	var st yali.Status
	var err error

	switch p.Type {
	case yali.TypeLightStatusReport:
		kind = yali.HistoryKindLight
		st, err = yali.ParseLightStatus(p)
	case yali.TypeShutterStatusReport:
		kind = yali.HistoryKindShutter
		st, err = yali.ParseShutterStatus(p)
	default:
		return
	}
	if err != nil {
		return
	}

	i := m.find(kind, st.Module, st.Channel)
	if i < 0 {
		return
	}
	e := &m.entries[i]
	e.value = st.Value
	e.updated = time.Now()
	if e.isLight() {
		m.log.add(fmt.Sprintf("Light %q %s", e.name, yali.FormatState(e.value)), false)
	} else {
		m.log.add(fmt.Sprintf("Shutter %q %d %%", e.name, e.value), false)
	}
	m.refreshRows()
}

func (m *monitorModel) selected() (monitorEntry, bool) {
	i := m.table.Cursor()
	if m.closed || i < 0 || i >= len(m.entries) {
		return monitorEntry{}, false
	}
	return m.entries[i], true
}

func (m *monitorModel) toggleSelected() tea.Cmd {
	e, ok := m.selected()
	if !ok {
		return nil
	}
	if e.isLight() {
		value := 100
		if e.value > 0 {
			value = 0
		}
		m.log.add(fmt.Sprintf("Switching light %q to %d %%", e.name, value), false)
		return m.send(yali.LightStatusSet(e.module, e.channel, value))
	}

	target := 100
	if e.value >= 50 {
		target = 0
	}
	m.log.add(fmt.Sprintf("Moving shutter %q to %d %%", e.name, target), false)
	return m.send(yali.ShutterStatusSet(e.module, e.channel, target, target))
}

func (m *monitorModel) dimSelected(step int) tea.Cmd {
	e, ok := m.selected()
	if !ok || !e.isLight() {
		return nil
	}
	value := max(0, min(max(e.value, 0)+step, 100))
	m.log.add(fmt.Sprintf("Switching light %q to %d %%", e.name, value), false)
	return m.send(yali.LightStatusSet(e.module, e.channel, value))
}

func (m *monitorModel) send(p *yali.Packet) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		if err := sender.Send(p); err != nil {
			return sendErrMsg{err: err}
		}
		return nil
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("YALI - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Gateway: %s | %s", m.server, m.version)))
	s.WriteString("\n\n")

	if m.closed {
		s.WriteString(errorStyle.Render("✗ Disconnected"))
		s.WriteString("\n\n")
	}

	s.WriteString(boxStyle.Render(m.table.View()))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Events:"))
	s.WriteString("\n")
	s.WriteString(m.log.render(5))
	s.WriteString("\n")
	s.WriteString(m.help.View(monitorKeys))
	s.WriteString("\n")

	return s.String()
}
