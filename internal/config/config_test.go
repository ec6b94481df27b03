package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Pager.Command != "less" {
		t.Errorf("pager command = %q", cfg.Pager.Command)
	}
	if cfg.Pager.Enabled != nil {
		t.Error("pager enabled should default to auto")
	}
	if cfg.Accounting.Path == "" {
		t.Error("accounting path should have a default")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config should fall back to defaults: %v", err)
	}
	if cfg.Pager.Command != "less" {
		t.Errorf("pager command = %q", cfg.Pager.Command)
	}
}

func TestLoadFromOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
hostname: edge-router-1
pager:
  enabled: false
daemon:
  enabled: true
  idle_timeout: 30s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hostname != "edge-router-1" {
		t.Errorf("hostname = %q", cfg.Hostname)
	}
	if cfg.Pager.Enabled == nil || *cfg.Pager.Enabled {
		t.Error("pager should be disabled")
	}
	// Unset fields keep their defaults.
	if cfg.Pager.Command != "less" {
		t.Errorf("pager command = %q, want default", cfg.Pager.Command)
	}
	if cfg.Daemon.Enabled == nil || !*cfg.Daemon.Enabled {
		t.Error("daemon should be required")
	}
	if got := cfg.Daemon.IdleTimeoutDuration(); got != 30*time.Second {
		t.Errorf("idle timeout = %v", got)
	}
}

func TestLoadFromBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pager: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "accounting:\n  path: ~/acct.jsonl\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Accounting.Path != filepath.Join(home, "acct.jsonl") {
		t.Errorf("path = %q, tilde not expanded", cfg.Accounting.Path)
	}
}

func TestIdleTimeoutFallback(t *testing.T) {
	d := DaemonConfig{IdleTimeout: "bogus"}
	if got := d.IdleTimeoutDuration(); got != DefaultIdleTimeout {
		t.Errorf("idle timeout = %v, want default", got)
	}
}
