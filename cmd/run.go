// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stationmaster/civbeacon/internal/config"
	"github.com/stationmaster/civbeacon/pkg/beacon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the beacon",
	Long: `Listen to the CI-V bus and report frequency and mode changes to the collector.

Frames of 11 bytes carry the operating frequency, frames of 8 bytes the
operating mode; all other reads are ignored. Once per report interval the
current pair is compared with the last reported pair and, if either changed,
sent to the collector:

  GET <uplink><uplink-path>?device_id=<id>&freq=<hex10>&mode=<hex4>

Delivery is best effort: failures are logged and never retried.`,
	RunE: runBeacon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBeacon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, os.Stderr)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := beacon.NewMetrics(reg)

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics, reg, logger.Named("metrics"))
	}

	state, err := newDeviceState(cfg, logger)
	if err != nil {
		return err
	}

	sink, err := newSink(cfg, logger.Named("uplink"), metrics)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	logger.Info("connection opened", zap.String("connection", connInfo))

	b, err := beacon.New(beacon.Options{
		Source:   conn,
		State:    state,
		Sink:     sink,
		Interval: cfg.Interval(),
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		conn.Close()
		return err
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("beacon: %w", err)
	}
	return nil
}

// resolveDeviceID returns the configured id or one derived from the
// hardware address
func resolveDeviceID(cfg *config.Config) (uint32, error) {
	if cfg.Device.ID != 0 {
		return cfg.Device.ID, nil
	}
	id, err := beacon.HardwareID()
	if err != nil {
		return 0, fmt.Errorf("device id: %w (set --device-id)", err)
	}
	return id, nil
}

func newDeviceState(cfg *config.Config, logger *zap.Logger) (*beacon.DeviceState, error) {
	id, err := resolveDeviceID(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Device.ID == 0 {
		logger.Info("derived device id from hardware address", zap.Uint32("device_id", id))
	}
	return beacon.NewDeviceState(id, cfg.Device.Name, beacon.Snapshot{
		Frequency: cfg.Initial.Frequency,
		Mode:      cfg.Initial.Mode,
	}), nil
}

// newSink builds the uplink selected by uplink.transport
func newSink(cfg *config.Config, logger *zap.Logger, metrics *beacon.Metrics) (beacon.Sink, error) {
	switch strings.ToLower(cfg.Uplink.Transport) {
	case beacon.TransportWebSocket:
		target, err := url.JoinPath(cfg.Uplink.BaseURL, cfg.Uplink.Path)
		if err != nil {
			return nil, fmt.Errorf("uplink: %w", err)
		}
		return beacon.NewWebSocketUplink(target, nil, cfg.Uplink.NoSSLVerify, cfg.Uplink.Timeout, logger, metrics)
	default:
		return newHTTPUplink(cfg, logger, metrics)
	}
}

func newHTTPUplink(cfg *config.Config, logger *zap.Logger, metrics *beacon.Metrics) (*beacon.HTTPUplink, error) {
	client := &http.Client{}
	if cfg.Uplink.NoSSLVerify {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return beacon.NewHTTPUplink(client, cfg.Uplink.BaseURL, cfg.Uplink.Path, cfg.Uplink.Timeout, logger, metrics)
}

// serveMetrics exposes reg until ctx is done
func serveMetrics(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
