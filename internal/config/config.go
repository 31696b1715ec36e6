// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the beacon configuration from file, environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CIVBEACON_SERIAL_PORT
const EnvPrefix = "CIVBEACON"

// SerialConfig describes the CI-V serial port
type SerialConfig struct {
	Port        string        `mapstructure:"port" yaml:"port"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
}

// SourceConfig describes a WebSocket bridge used instead of a local port
type SourceConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Username    string `mapstructure:"username" yaml:"username"`
	NoSSLVerify bool   `mapstructure:"noSSLVerify" yaml:"noSSLVerify"`
}

// DeviceConfig identifies the beacon to the collector
type DeviceConfig struct {
	ID   uint32 `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// InitialConfig holds the placeholder radio state
type InitialConfig struct {
	Frequency string `mapstructure:"frequency" yaml:"frequency"`
	Mode      string `mapstructure:"mode" yaml:"mode"`
}

// ReportConfig controls the change reporter
type ReportConfig struct {
	IntervalMs int `mapstructure:"intervalMs" yaml:"intervalMs"`
}

// UplinkConfig describes the collector endpoint
type UplinkConfig struct {
	Transport   string        `mapstructure:"transport" yaml:"transport"`
	BaseURL     string        `mapstructure:"baseURL" yaml:"baseURL"`
	Path        string        `mapstructure:"path" yaml:"path"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	NoSSLVerify bool          `mapstructure:"noSSLVerify" yaml:"noSSLVerify"`
}

// LumberjackConfig configures log file rotation
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig configures level, encoding and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// MetricsConfig configures the prometheus endpoint; an empty Addr disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top level configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial" yaml:"serial"`
	Source  SourceConfig  `mapstructure:"source" yaml:"source"`
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Initial InitialConfig `mapstructure:"initial" yaml:"initial"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Uplink  UplinkConfig  `mapstructure:"uplink" yaml:"uplink"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MarshalYAML writes ReadTimeout as a duration string
func (s SerialConfig) MarshalYAML() (any, error) {
	return struct {
		Port        string `yaml:"port"`
		Baud        int    `yaml:"baud"`
		ReadTimeout string `yaml:"readTimeout"`
	}{s.Port, s.Baud, s.ReadTimeout.String()}, nil
}

// MarshalYAML writes Timeout as a duration string
func (u UplinkConfig) MarshalYAML() (any, error) {
	return struct {
		Transport   string `yaml:"transport"`
		BaseURL     string `yaml:"baseURL"`
		Path        string `yaml:"path"`
		Timeout     string `yaml:"timeout"`
		NoSSLVerify bool   `yaml:"noSSLVerify"`
	}{u.Transport, u.BaseURL, u.Path, u.Timeout.String(), u.NoSSLVerify}, nil
}

// Interval returns the reporting period
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Report.IntervalMs) * time.Millisecond
}

// Load reads configuration from path (or the default search locations when
// path is empty), environment variables and the given flags. Flags override
// the environment, which overrides the file, which overrides defaults.
// A missing config file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/civbeacon")
		v.SetConfigName("civbeacon")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// FlagKeys maps command line flag names to configuration keys
var FlagKeys = map[string]string{
	"port":                 "serial.port",
	"baud":                 "serial.baud",
	"url":                  "source.url",
	"username":             "source.username",
	"no-ssl-verify":        "source.noSSLVerify",
	"interval":             "report.intervalMs",
	"uplink":               "uplink.baseURL",
	"uplink-path":          "uplink.path",
	"transport":            "uplink.transport",
	"uplink-no-ssl-verify": "uplink.noSSLVerify",
	"device-id":            "device.id",
	"device-name":          "device.name",
	"log-level":            "logging.level",
	"log-format":           "logging.format",
	"metrics-addr":         "metrics.addr",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 9600)
	v.SetDefault("serial.readTimeout", "100ms")

	v.SetDefault("source.url", "")
	v.SetDefault("source.username", "")
	v.SetDefault("source.noSSLVerify", false)

	v.SetDefault("device.id", 0)
	v.SetDefault("device.name", "civbeacon")

	v.SetDefault("initial.frequency", "0007125000")
	v.SetDefault("initial.mode", "0200")

	v.SetDefault("report.intervalMs", 3000)

	v.SetDefault("uplink.transport", "http")
	v.SetDefault("uplink.baseURL", "")
	v.SetDefault("uplink.path", "/api/v1/beacon")
	v.SetDefault("uplink.timeout", "5s")
	v.SetDefault("uplink.noSSLVerify", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}
