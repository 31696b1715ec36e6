// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stationmaster/civbeacon/internal/config"
	"github.com/stationmaster/civbeacon/pkg/beacon"
)

var uplinkPingCount int

var uplinkPingCmd = &cobra.Command{
	Use:   "uplink_ping",
	Short: "Test the collector by sending the initial state",
	Long: `Send reports carrying the configured initial frequency and mode to the
collector over the configured transport and print each response status
(the handshake status for websocket).

Unlike the beacon, each request is made synchronously so the result can be
shown. No serial port is opened.

Exit codes:
  0 - All requests returned 2xx
  1 - One or more requests failed`,
	RunE: runUplinkPing,
}

func init() {
	rootCmd.AddCommand(uplinkPingCmd)
	uplinkPingCmd.Flags().IntVar(&uplinkPingCount, "count", 1, "Number of reports to send")
}

func runUplinkPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateUplink(cfg); err != nil {
		return err
	}
	if err := config.ValidateState(cfg); err != nil {
		return err
	}

	id, err := resolveDeviceID(cfg)
	if err != nil {
		return err
	}

	uplink, err := newDeliverer(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer uplink.Close()

	fmt.Printf("civbeacon - Uplink Ping\n")
	fmt.Printf("Collector: %s%s (%s)\n", cfg.Uplink.BaseURL, cfg.Uplink.Path, cfg.Uplink.Transport)
	fmt.Printf("Device: %s (%d)\n\n", cfg.Device.Name, id)

	failCount := 0
	for i := 1; i <= uplinkPingCount; i++ {
		report := beacon.Report{
			ID:         uuid.New(),
			DeviceID:   id,
			DeviceName: cfg.Device.Name,
			Frequency:  cfg.Initial.Frequency,
			Mode:       cfg.Initial.Mode,
			Time:       time.Now(),
		}

		fmt.Printf("Report %d/%d: ", i, uplinkPingCount)
		start := time.Now()
		status, err := uplink.Deliver(context.Background(), report)
		rtt := time.Since(start).Round(time.Millisecond)
		if status == 0 {
			fmt.Printf("FAILED: %v\n", err)
			failCount++
			continue
		}
		fmt.Printf("HTTP %d, rtt=%v\n", status, rtt)
		if err != nil {
			failCount++
		}
	}

	fmt.Printf("\n--- Uplink statistics ---\n")
	fmt.Printf("%d reports sent, %d accepted\n", uplinkPingCount, uplinkPingCount-failCount)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// deliverer sends one report synchronously
type deliverer interface {
	Deliver(ctx context.Context, r beacon.Report) (int, error)
	Close() error
}

// newDeliverer builds the uplink selected by uplink.transport for
// synchronous use
func newDeliverer(cfg *config.Config, logger *zap.Logger) (deliverer, error) {
	sink, err := newSink(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	d, ok := sink.(deliverer)
	if !ok {
		return nil, fmt.Errorf("uplink: transport %q cannot deliver synchronously", cfg.Uplink.Transport)
	}
	return d, nil
}
