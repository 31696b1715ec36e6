// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stationmaster/civbeacon/internal/config"
	"github.com/stationmaster/civbeacon/internal/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "civbeacon",
	Short: "CI-V Radio Beacon",
	Long: `civbeacon - listens to a transceiver's CI-V bus and reports its
operating frequency and mode to a remote collector.

Frequency and mode are forwarded as opaque hex tokens whenever they change,
checked once per report interval.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the CIVBEACON_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Every flag can also be set in civbeacon.yaml or via CIVBEACON_* environment
variables (e.g. CIVBEACON_SERIAL_PORT, CIVBEACON_UPLINK_BASEURL).`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default ./civbeacon.yaml or /etc/civbeacon/civbeacon.yaml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification for the WebSocket bridge (wss:// only)")

	// Beacon flags
	flags.Int("interval", 3000, "Report interval in milliseconds")
	flags.String("uplink", "", "Collector base URL")
	flags.String("uplink-path", "/api/v1/beacon", "Collector endpoint path")
	flags.String("transport", "http", "Uplink transport (http or websocket)")
	flags.Bool("uplink-no-ssl-verify", false, "Skip TLS certificate verification for the collector (https:// and wss://)")
	flags.Uint32("device-id", 0, "Device id (0 derives one from the hardware address)")
	flags.String("device-name", "civbeacon", "Device name")

	// Logging and metrics
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address (empty disables)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the effective configuration for cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

// newLogger builds the process logger writing to out
func newLogger(cfg *config.Config, out io.Writer) *zap.Logger {
	return logging.New(cfg.Logging, out)
}
