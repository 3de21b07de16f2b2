package ecs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime tuning knobs, loadable from a YAML file by bootstrap
// code and tooling.
type Config struct {
	// TickRate is the target frames per second for Runtime.Run.
	TickRate int `yaml:"tick_rate"`
	// Workers bounds concurrent systems per execution group. Zero means
	// unbounded, one forces sequential groups.
	Workers int `yaml:"workers"`
	// FixedDelta, when non-zero, replaces wall-clock deltas with a fixed
	// per-frame step in seconds.
	FixedDelta float64 `yaml:"fixed_delta"`
}

// DefaultConfig returns the config used when no file is given.
func DefaultConfig() *Config {
	return &Config{TickRate: 60}
}

// LoadConfig reads a YAML config file, applying defaults for absent fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	return cfg, nil
}

// Interval converts the tick rate to a frame interval.
func (c *Config) Interval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// SchedulerOptions returns the scheduler options implied by the config.
func (c *Config) SchedulerOptions() []SchedulerOption {
	var opts []SchedulerOption
	if c.Workers > 0 {
		opts = append(opts, WithWorkerLimit(c.Workers))
	}
	return opts
}

// RuntimeOptions returns the runtime options implied by the config.
func (c *Config) RuntimeOptions() []RuntimeOption {
	var opts []RuntimeOption
	if c.FixedDelta > 0 {
		opts = append(opts, WithFixedDelta(c.FixedDelta))
	}
	return opts
}
