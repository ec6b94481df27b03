// Package config loads the rtsh configuration: defaults first, then an
// optional YAML overlay from the operator's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global rtsh configuration.
type Config struct {
	Hostname   string           `yaml:"hostname"`
	Pager      PagerConfig      `yaml:"pager"`
	Accounting AccountingConfig `yaml:"accounting"`
	Commands   CommandsConfig   `yaml:"commands"`
	Filters    FiltersConfig    `yaml:"filters"`
	Daemon     DaemonConfig     `yaml:"daemon"`
}

// PagerConfig controls the interactive output pager.
type PagerConfig struct {
	// Enabled: nil = page when interactive, false = never page.
	Enabled *bool    `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// AccountingConfig controls the command accounting log.
type AccountingConfig struct {
	Path string `yaml:"path"`
}

// CommandsConfig points at an optional operator command-tree overlay.
type CommandsConfig struct {
	Path string `yaml:"path"`
}

// FiltersConfig points at the directory of user-defined filter scripts.
type FiltersConfig struct {
	Dir string `yaml:"dir"`
}

// DaemonConfig controls daemon behavior.
type DaemonConfig struct {
	// Enabled: nil = auto (try daemon, fall back to in-process),
	// true = require daemon, false = always in-process.
	Enabled     *bool  `yaml:"enabled"`
	IdleTimeout string `yaml:"idle_timeout"`
}

// DefaultIdleTimeout is used when no idle_timeout is configured.
const DefaultIdleTimeout = 5 * time.Minute

// IdleTimeoutDuration parses the configured idle timeout or returns the default.
func (d *DaemonConfig) IdleTimeoutDuration() time.Duration {
	if d.IdleTimeout != "" {
		dur, err := time.ParseDuration(d.IdleTimeout)
		if err == nil {
			return dur
		}
	}
	return DefaultIdleTimeout
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	hostname, _ := os.Hostname()
	return &Config{
		Hostname: hostname,
		Pager: PagerConfig{
			Command: "less",
			Args:    []string{"-F", "-X"},
		},
		Accounting: AccountingConfig{
			Path: filepath.Join(home, ".local", "share", "rtsh", "accounting.jsonl"),
		},
		Commands: CommandsConfig{
			Path: filepath.Join(home, ".config", "rtsh", "commands.yaml"),
		},
		Filters: FiltersConfig{
			Dir: filepath.Join(home, ".config", "rtsh", "filters"),
		},
	}
}

// Load reads the config from the standard location (~/.config/rtsh/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "rtsh", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Accounting.Path = expandHome(cfg.Accounting.Path)
	cfg.Commands.Path = expandHome(cfg.Commands.Path)
	cfg.Filters.Dir = expandHome(cfg.Filters.Dir)

	return cfg, nil
}

func expandHome(path string) string {
	if path != "" && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rtsh", "config.yaml")
}
