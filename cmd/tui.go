// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shared styles of the bus_stats and monitor views
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// logEntry is one line of the scrolling event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// eventLog keeps the last max entries
type eventLog struct {
	entries []logEntry
	max     int
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, logEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// render prints the newest entries that fit into lines rows
func (l *eventLog) render(lines int) string {
	start := 0
	if lines > 0 && len(l.entries) > lines {
		start = len(l.entries) - lines
	}
	var s strings.Builder
	for _, e := range l.entries[start:] {
		ts := headerStyle.Render(e.timestamp.Format("15:04:05.000"))
		msg := e.message
		if e.isError {
			msg = errorStyle.Render(msg)
		}
		fmt.Fprintf(&s, "%s %s\n", ts, msg)
	}
	return s.String()
}

// formatElapsed renders a duration as "1 hour, 2 minutes and 3 seconds"
func formatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	units := []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	var parts []string
	for _, u := range units {
		n := secs / u.size
		secs %= u.size
		if n == 0 && !(u.size == 1 && len(parts) == 0) {
			continue
		}
		if n == 1 {
			parts = append(parts, "1 "+u.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

//////////////////////////////////////////////////////////////
// bus_stats model
//////////////////////////////////////////////////////////////

type statsModel struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *lcn.Statistics
	log           eventLog
	synchronized  bool
	skipped       int // garbage bytes before the first frame
	closed        bool
	width         int
	height        int
	quitting      bool
}

type tickMsg time.Time

type busDataMsg struct {
	packets []*lcn.Packet
}

type busClosedMsg struct {
	err error
}

func initialStatsModel(connInfo string, statsInterval int, showAll bool) statsModel {
	return statsModel{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         lcn.NewStatistics(),
		log:           eventLog{max: 100},
		width:         80,
		height:        24,
	}
}

func (m statsModel) Init() tea.Cmd {
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

func (m statsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.log.add("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case busDataMsg:
		m.handlePackets(msg.packets)

	case busClosedMsg:
		m.closed = true
		if msg.err != nil {
			m.log.add(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.log.add("Connection closed", true)
		}
	}

	return m, nil
}

func (m *statsModel) handlePackets(packets []*lcn.Packet) {
	accountPackets(m.stats, packets)
	for _, p := range packets {
		if !m.synchronized {
			// Noise before the first frame is the tail of traffic that
			// started before we did
			if !p.IsFrame() {
				m.skipped += len(p.Bytes())
				continue
			}
			m.synchronized = true
			if m.skipped > 0 {
				m.log.add(fmt.Sprintf("Synchronized after skipping %d bytes", m.skipped), false)
			} else {
				m.log.add("Synchronized", false)
			}
		}

		switch {
		case !p.IsFrame():
			m.log.add(fmt.Sprintf("%s: %d bytes%s", strings.ToUpper(p.Kind().String()), len(p.Bytes()), lcn.HexDump(p.Bytes())), true)
		case m.showAll:
			m.log.add(lcn.FormatFrame(p.Frame()), false)
		}
	}
}

func (m statsModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("YALI - BUS STATISTICS"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset, 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	switch {
	case m.closed:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for the first frame..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skipped > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skipped)))
		}
	}
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(m.statsView()))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Event Log:"))
	s.WriteString("\n")
	// Header, status and stats box take 14 rows
	s.WriteString(m.log.render(m.height - 14))

	return s.String()
}

func (m statsModel) statsView() string {
	st := m.stats
	st.CalculateRates()

	label := statsLabelStyle.Render
	value := func(v uint64) string { return statsValueStyle.Render(fmt.Sprintf("%d", v)) }
	bad := func(v uint64) string {
		if v > 0 {
			return errorStyle.Render(fmt.Sprintf("%d", v))
		}
		return statsValueStyle.Render("0")
	}

	var c strings.Builder
	fmt.Fprintf(&c, "%s %s   %s %s   %s %s\n",
		label("Frames:"), value(st.Frames),
		label("Acks:"), value(st.Acks),
		label("Uninterpreted:"), warningStyle.Render(fmt.Sprintf("%d", st.UnknownFrames)),
	)
	fmt.Fprintf(&c, "%s %s   %s %s   %s %s   %s %s   %s %s\n",
		label("Garbage:"), bad(st.GarbageBytes),
		label("Resyncs:"), bad(st.GarbageRuns),
		label("CRC:"), bad(st.CRCErrors),
		label("Overflows:"), bad(st.Overflows),
		label("Stale:"), bad(st.StaleFlushes),
	)

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
	if st.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
	}
	fmt.Fprintf(&c, "%s %s   %s %s\n",
		label("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		label("Error Rate:"), errorRate,
	)
	fmt.Fprintf(&c, "%s %s",
		label("Running:"), statsValueStyle.Render(formatElapsed(time.Since(st.StartTime))),
	)
	return c.String()
}
