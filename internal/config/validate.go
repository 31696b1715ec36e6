// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

// ValidateSource checks that a byte source is configured
func ValidateSource(cfg *Config) error {
	if cfg.Serial.Port == "" && cfg.Source.URL == "" {
		return errors.New("config: either serial.port (--port) or source.url (--url) must be specified")
	}
	if cfg.Source.URL == "" && cfg.Serial.Baud <= 0 {
		return fmt.Errorf("config: serial.baud must be > 0, got %d", cfg.Serial.Baud)
	}
	return nil
}

// ValidateUplink checks the collector settings
func ValidateUplink(cfg *Config) error {
	switch strings.ToLower(cfg.Uplink.Transport) {
	case "http", "websocket":
	default:
		return fmt.Errorf("config: uplink.transport must be http or websocket, got %q", cfg.Uplink.Transport)
	}
	if cfg.Uplink.BaseURL == "" {
		return errors.New("config: uplink.baseURL (--uplink) must be specified")
	}
	return nil
}

// Validate checks the settings needed to run the beacon
func Validate(cfg *Config) error {
	if err := ValidateSource(cfg); err != nil {
		return err
	}
	if err := ValidateUplink(cfg); err != nil {
		return err
	}
	return ValidateState(cfg)
}

// ValidateState checks the reporter and placeholder settings
func ValidateState(cfg *Config) error {
	if cfg.Report.IntervalMs <= 0 {
		return fmt.Errorf("config: report.intervalMs must be > 0, got %d", cfg.Report.IntervalMs)
	}
	if !civ.ValidToken(cfg.Initial.Frequency, civ.FrequencyDigits) {
		return fmt.Errorf("config: initial.frequency must be %d lowercase hex digits, got %q", civ.FrequencyDigits, cfg.Initial.Frequency)
	}
	if !civ.ValidToken(cfg.Initial.Mode, civ.ModeDigits) {
		return fmt.Errorf("config: initial.mode must be %d lowercase hex digits, got %q", civ.ModeDigits, cfg.Initial.Mode)
	}
	if cfg.Device.Name == "" {
		return errors.New("config: device.name must not be empty")
	}
	return nil
}
