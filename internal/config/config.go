// Package config provides configuration loading for remindd.
package config

import (
	"fmt"
	"time"
)

// Config is the full remindd configuration.
type Config struct {
	// DataDir holds the JSON snapshot files (groups, settings, archive).
	DataDir string `koanf:"data_dir"`

	// Timezone is the single fixed location used for deadline parsing and
	// all now-comparisons.
	Timezone string `koanf:"timezone"`

	Sweep    SweepConfig    `koanf:"sweep"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	NATS     NATSConfig     `koanf:"nats"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Log      LogConfig      `koanf:"log"`
}

// SweepConfig tunes the reminder scan loop.
type SweepConfig struct {
	// Interval is the sweep cadence; the firing window width equals it.
	Interval time.Duration `koanf:"interval"`

	// Pace is the courtesy pause between successive sends within a sweep.
	Pace time.Duration `koanf:"pace"`
}

// DispatchConfig tunes the outbound queue.
type DispatchConfig struct {
	// RetryBudget is the number of additional attempts after a failed send.
	RetryBudget int `koanf:"retry_budget"`
}

// NATSConfig points at the broker carrying outbound notifications and
// inbound bridge commands.
type NATSConfig struct {
	URL            string `koanf:"url"`
	SubjectPrefix  string `koanf:"subject_prefix"`
	InboundSubject string `koanf:"inbound_subject"`
}

// MonitorConfig configures the metrics/health HTTP server.
type MonitorConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive, got %v", c.Sweep.Interval)
	}
	if c.Sweep.Pace < 0 {
		return fmt.Errorf("sweep.pace cannot be negative, got %v", c.Sweep.Pace)
	}
	if c.Dispatch.RetryBudget < 0 {
		return fmt.Errorf("dispatch.retry_budget cannot be negative, got %d", c.Dispatch.RetryBudget)
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url must be set")
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr must be set when monitor is enabled")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
