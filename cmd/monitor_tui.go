// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stationmaster/civbeacon/pkg/beacon"
	"github.com/stationmaster/civbeacon/pkg/civ"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type monitorModel struct {
	connInfo      string
	state         *beacon.DeviceState
	interval      time.Duration
	dryRun        bool
	events        <-chan tea.Msg
	stats         *civ.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	reports       int
	lastReport    time.Time
	started       time.Time
	stopped       bool
	spinner       spinner.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame *civ.Frame
}
type rejectedMsg struct {
	raw []byte
	err error
}
type reportMsg struct {
	report beacon.Report
}
type stoppedMsg struct {
	err error
}

// formatUptime formats a duration to a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newMonitorModel(connInfo string, state *beacon.DeviceState, interval time.Duration, dryRun bool, events <-chan tea.Msg) monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	return monitorModel{
		connInfo:      connInfo,
		state:         state,
		interval:      interval,
		dryRun:        dryRun,
		events:        events,
		stats:         civ.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		started:       time.Now(),
		spinner:       s,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent delivers the next beacon event to the program
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return stoppedMsg{}
		}
		return msg
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameMsg:
		m.stats.Update(len(msg.frame.Raw()), msg.frame.Kind())
		m.addLogEntry(fmt.Sprintf("%s %s", strings.ToUpper(msg.frame.Kind().String()), msg.frame.Value()), false)
		return m, waitForEvent(m.events)

	case rejectedMsg:
		n := len(msg.raw)
		var lengthErr *civ.LengthError
		if errors.As(msg.err, &lengthErr) {
			n = lengthErr.Length
		}
		m.stats.Update(n, civ.KindUnknown)
		m.addLogEntry(fmt.Sprintf("IGNORED: %v", msg.err), true)
		return m, waitForEvent(m.events)

	case reportMsg:
		m.reports++
		m.lastReport = msg.report.Time
		verb := "Reported"
		if m.dryRun {
			verb = "Would report"
		}
		m.addLogEntry(fmt.Sprintf("%s freq=%s mode=%s", verb, msg.report.Frequency, msg.report.Mode), false)
		return m, waitForEvent(m.events)

	case stoppedMsg:
		if !m.stopped {
			m.stopped = true
			if msg.err != nil {
				m.addLogEntry(fmt.Sprintf("Beacon stopped: %v", msg.err), true)
			} else {
				m.addLogEntry("Beacon stopped", false)
			}
		}
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("CIVBEACON - MONITOR"))
	s.WriteString("\n")
	uplinkMode := "Uplink enabled"
	if m.dryRun {
		uplinkMode = "Dry run"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | 'r' reset stats | 'q' quit", m.connInfo, uplinkMode)))
	s.WriteString("\n\n")

	// Status line
	if m.stopped {
		s.WriteString(errorStyle.Render("✗ Stopped"))
	} else {
		s.WriteString(m.spinner.View())
		s.WriteString(valueStyle.Render(" Listening"))
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf(" for %s", formatUptime(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Radio state
	current := m.state.Current()
	reported := m.state.LastReported()
	stateContent := strings.Builder{}
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		labelStyle.Render("Device:"), valueStyle.Render(m.state.Name()),
		labelStyle.Render("ID:"), valueStyle.Render(fmt.Sprintf("%d", m.state.ID())),
	))
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		labelStyle.Render("Frequency:"), valueStyle.Render(current.Frequency),
		labelStyle.Render("Mode:"), valueStyle.Render(current.Mode),
	))
	pending := ""
	if current != reported {
		pending = warningStyle.Render("  (change pending)")
	}
	stateContent.WriteString(fmt.Sprintf("%s %s / %s%s\n",
		labelStyle.Render("Last reported:"), headerStyle.Render(reported.Frequency), headerStyle.Render(reported.Mode), pending,
	))
	lastReport := "never"
	if !m.lastReport.IsZero() {
		lastReport = m.lastReport.Format("15:04:05")
	}
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Reports:"), valueStyle.Render(fmt.Sprintf("%d", m.reports)),
		labelStyle.Render("Last:"), valueStyle.Render(lastReport),
		labelStyle.Render("Interval:"), valueStyle.Render(m.interval.String()),
	))
	s.WriteString(boxStyle.Render(stateContent.String()))
	s.WriteString("\n\n")

	// Statistics
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		labelStyle.Render("Reads:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Freq:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.FrequencyFrames)),
		labelStyle.Render("Mode:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.ModeFrames)),
		labelStyle.Render("Unknown:"), func() string {
			if m.stats.UnknownFrames > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", m.stats.UnknownFrames))
			}
			return valueStyle.Render("0")
		}(),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		labelStyle.Render("Recognized:"), valueStyle.Render(fmt.Sprintf("%.1f%%", m.stats.RecognizedPercent())),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 18 // Reserve space for header, state and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
