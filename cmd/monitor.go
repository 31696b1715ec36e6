// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stationmaster/civbeacon/internal/config"
	"github.com/stationmaster/civbeacon/pkg/beacon"
	"github.com/stationmaster/civbeacon/pkg/civ"
)

var monitorDryRun bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the beacon with a live terminal UI",
	Long: `Run the beacon and show the live radio state, the last reported pair,
frame statistics and an event log.

With --dry-run no uplink is used: changes are detected and committed on each
interval exactly as in 'run', but nothing is sent to the collector.

Log output is suppressed while the UI is active unless logging.file.filename
is configured.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorDryRun, "dry-run", false, "Detect changes without sending them to the collector")
}

// Beacon events are dropped rather than stall the read loop when the UI lags
const monitorEventBuffer = 256

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if monitorDryRun {
		if err := config.ValidateSource(cfg); err != nil {
			return err
		}
		if err := config.ValidateState(cfg); err != nil {
			return err
		}
	} else if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, io.Discard)
	defer logger.Sync()

	state, err := newDeviceState(cfg, logger)
	if err != nil {
		return err
	}

	var sink beacon.Sink
	if !monitorDryRun {
		sink, err = newSink(cfg, logger.Named("uplink"), nil)
		if err != nil {
			return err
		}
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}

	events := make(chan tea.Msg, monitorEventBuffer)
	post := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	b, err := beacon.New(beacon.Options{
		Source:   conn,
		State:    state,
		Sink:     sink,
		Interval: cfg.Interval(),
		Logger:   logger,
		Hooks: beacon.Hooks{
			OnFrame:    func(f *civ.Frame) { post(frameMsg{frame: f}) },
			OnRejected: func(raw []byte, err error) { post(rejectedMsg{raw: raw, err: err}) },
			OnReport:   func(r beacon.Report) { post(reportMsg{report: r}) },
		},
	})
	if err != nil {
		conn.Close()
		return err
	}

	if err := b.Start(cmd.Context()); err != nil {
		conn.Close()
		return err
	}
	go func() {
		post(stoppedMsg{err: b.Wait()})
	}()

	m := newMonitorModel(connInfo, state, cfg.Interval(), monitorDryRun, events)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := p.Run()

	stopErr := b.Stop()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	if stopErr != nil {
		return fmt.Errorf("beacon: %w", stopErr)
	}
	return nil
}
