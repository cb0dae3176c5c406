// Package config holds the user-facing options of the borrow checker.
package config

import (
	"fmt"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Names of the rule families that can be disabled.
const (
	CheckInit       = "init"
	CheckMutability = "mutability"
	CheckLifetimes  = "lifetimes"
	CheckAliasing   = "aliasing"
)

var allChecks = []string{CheckInit, CheckMutability, CheckLifetimes, CheckAliasing}

type Config struct {
	// LogLevel ranges from 1 (errors only) to 5 (trace). Zero means info.
	LogLevel int `yaml:"log-level"`

	// DisabledChecks lists rule families that are not run.
	DisabledChecks []string `yaml:"disabled-checks"`

	// Color enables ANSI colors when rendering diagnostics.
	Color bool `yaml:"color"`
}

func NewDefault() *Config {
	return &Config{LogLevel: int(InfoLevel)}
}

// Load reads a configuration from a yaml file.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := LoadFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func LoadFromBytes(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.LogLevel < int(ErrLevel) || cfg.LogLevel > int(TraceLevel) {
		return nil, fmt.Errorf("log-level %d out of range [%d, %d]", cfg.LogLevel, ErrLevel, TraceLevel)
	}
	for _, c := range cfg.DisabledChecks {
		if !slices.Contains(allChecks, c) {
			return nil, fmt.Errorf("unknown check %q (known checks: %v)", c, allChecks)
		}
	}
	return cfg, nil
}

// Enabled reports whether the named rule family runs.
func (c *Config) Enabled(check string) bool {
	return !slices.Contains(c.DisabledChecks, check)
}
