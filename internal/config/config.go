package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dreamware/torua/internal/token"
)

// EnvPrefix is the prefix of environment overrides. TORUA_RING__PARTITIONER
// overrides ring.partitioner.
const EnvPrefix = "TORUA_"

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	Ring   RingConfig   `koanf:"ring"`
	Health HealthConfig `koanf:"health"`
	Scan   ScanConfig   `koanf:"scan"`
	Node   NodeConfig   `koanf:"node"`
}

// ServerConfig holds the coordinator HTTP settings.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `koanf:"level"`
}

// RingConfig describes the token ring.
type RingConfig struct {
	Partitioner       string `koanf:"partitioner"`
	ReplicationFactor int    `koanf:"replication_factor"`
}

// HealthConfig tunes host health checks.
type HealthConfig struct {
	Interval    string `koanf:"interval"`
	Timeout     string `koanf:"timeout"`
	MaxFailures int    `koanf:"max_failures"`
}

// ScanConfig tunes parallel range scans.
type ScanConfig struct {
	SplitsPerRange int `koanf:"splits_per_range"`
	Concurrency    int `koanf:"concurrency"`
}

// NodeConfig describes a storage node. An empty ID is replaced by a random
// UUID at startup; Tokens derived from it stay stable across restarts only
// when the ID is set.
type NodeConfig struct {
	ID          string `koanf:"id"`
	Listen      string `koanf:"listen"`
	Addr        string `koanf:"addr"`
	Coordinator string `koanf:"coordinator"`
	Datacenter  string `koanf:"datacenter"`
	NumTokens   int    `koanf:"num_tokens"`
}

var defaults = map[string]any{
	"server.addr":             ":8080",
	"log.level":               "info",
	"ring.partitioner":        "Murmur3Partitioner",
	"ring.replication_factor": 3,
	"health.interval":         "5s",
	"health.timeout":          "2s",
	"health.max_failures":     3,
	"scan.splits_per_range":   4,
	"scan.concurrency":        8,
	"node.listen":             ":8081",
	"node.addr":               "http://127.0.0.1:8081",
	"node.coordinator":        "http://127.0.0.1:8080",
	"node.datacenter":         "dc1",
	"node.num_tokens":         8,
}

// Load reads the configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that koanf cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	if _, err := token.ForName(c.Ring.Partitioner); err != nil {
		errs = append(errs, fmt.Errorf("ring.partitioner: %w", err))
	}
	if c.Ring.ReplicationFactor < 1 {
		errs = append(errs, fmt.Errorf("ring.replication_factor must be at least 1, got %d", c.Ring.ReplicationFactor))
	}
	if _, err := c.Health.IntervalDuration(); err != nil {
		errs = append(errs, fmt.Errorf("invalid health interval: %w", err))
	}
	if _, err := c.Health.TimeoutDuration(); err != nil {
		errs = append(errs, fmt.Errorf("invalid health timeout: %w", err))
	}
	if c.Health.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("health.max_failures must be at least 1, got %d", c.Health.MaxFailures))
	}
	if c.Scan.SplitsPerRange < 1 {
		errs = append(errs, fmt.Errorf("scan.splits_per_range must be at least 1, got %d", c.Scan.SplitsPerRange))
	}
	if c.Scan.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency))
	}
	if c.Node.NumTokens < 1 {
		errs = append(errs, fmt.Errorf("node.num_tokens must be at least 1, got %d", c.Node.NumTokens))
	}
	if c.Node.ID != "" {
		if _, err := uuid.Parse(c.Node.ID); err != nil {
			errs = append(errs, fmt.Errorf("node.id: %w", err))
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ResolvePartitioner returns the configured partitioner.
func (c RingConfig) ResolvePartitioner() (token.Partitioner, error) {
	return token.ForName(c.Partitioner)
}

// IntervalDuration parses the health check interval.
func (c HealthConfig) IntervalDuration() (time.Duration, error) {
	return positiveDuration(c.Interval)
}

// TimeoutDuration parses the health check timeout.
func (c HealthConfig) TimeoutDuration() (time.Duration, error) {
	return positiveDuration(c.Timeout)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	return level, nil
}
