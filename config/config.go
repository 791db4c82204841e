package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"livemem/marshal"
)

const (
	configDir  string = "livemem"
	configFile string = "config.yml"
)

// BreakerConfig tunes per-marshaler failure escalation.
type BreakerConfig struct {
	// Failures is the number of consecutive memory access failures that
	// suspends a marshaler.
	Failures uint32 `yaml:"failures"`
	// Cooldown is how long a suspended marshaler waits before probing again.
	Cooldown time.Duration `yaml:"cooldown"`
}

// Config defines all options available to be set through the config file.
type Config struct {
	// Process is the default target process name.
	Process string `yaml:"process,omitempty"`
	// Module is the main module name used to find the module base.
	Module string `yaml:"module,omitempty"`
	// Offsets is the default offsets file.
	Offsets string `yaml:"offsets,omitempty"`

	// TickInterval is the scheduler period.
	TickInterval time.Duration `yaml:"tick-interval"`
	// CacheSize bounds the per-tick resolved address cache.
	CacheSize int `yaml:"cache-size"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// Default returns a config with every field at its default.
func Default() *Config {
	opts := marshal.DefaultOptions()
	return &Config{
		TickInterval: opts.TickInterval,
		CacheSize:    opts.CacheSize,
		Breaker: BreakerConfig{
			Failures: opts.BreakerFailures,
			Cooldown: opts.BreakerCooldown,
		},
	}
}

// Parse decodes data over the defaults, so missing fields keep them.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path, creating the directory if needed.
func Save(c *Config, path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects values no session can run with.
func (c *Config) Validate() error {
	if c.TickInterval < time.Millisecond {
		return fmt.Errorf("tick-interval %s is below 1ms", c.TickInterval)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache-size %d must be positive", c.CacheSize)
	}
	if c.Breaker.Failures == 0 {
		return fmt.Errorf("breaker.failures must be positive")
	}
	if c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("breaker.cooldown %s must be positive", c.Breaker.Cooldown)
	}
	return nil
}

// SessionOptions converts c into marshal options.
func (c *Config) SessionOptions() marshal.Options {
	return marshal.Options{
		TickInterval:    c.TickInterval,
		CacheSize:       c.CacheSize,
		BreakerFailures: c.Breaker.Failures,
		BreakerCooldown: c.Breaker.Cooldown,
	}
}

// DefaultPath returns the per-user config file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDir, configFile), nil
}
