package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
)

// isolate points XDG_CONFIG_HOME at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://back-eu4.sesametime.com/api/v3" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Store != StoreFile {
		t.Errorf("Store = %q, want file", cfg.Store)
	}
	if cfg.Timeout != 30*time.Second || cfg.Tick != time.Second || cfg.RefreshInterval != 5*time.Minute {
		t.Errorf("unexpected durations %+v", cfg)
	}
	if cfg.RateLimit != 2 {
		t.Errorf("RateLimit = %v", cfg.RateLimit)
	}
	if cfg.File != "" {
		t.Errorf("no config file expected, got %q", cfg.File)
	}
}

func TestLoadNilFlags(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "sesame-cli", "config.yaml"), `
store: sqlite
log-level: debug
refresh-interval: 1m
base-url: https://example.test/api/v3/
`)

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != StoreSQLite || cfg.LogLevel != "debug" || cfg.RefreshInterval != time.Minute {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.BaseURL != "https://example.test/api/v3" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(cfg.File, "config.yaml") {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestPrecedence(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "sesame-cli", "config.yaml"), "log-level: warn\nstore: sqlite\ntick: 2s\n")
	t.Setenv("SESAME_LOG_LEVEL", "error")
	t.Setenv("SESAME_TICK", "3s")

	cfg, err := Load(newFlags(t, "--tick=500ms"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("file should apply when nothing overrides it, got %q", cfg.Store)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("env should beat file, got %q", cfg.LogLevel)
	}
	if cfg.Tick != 500*time.Millisecond {
		t.Errorf("flag should beat env, got %v", cfg.Tick)
	}
}

func TestExplicitConfigMissing(t *testing.T) {
	isolate(t)
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestMalformedConfigFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "sesame-cli", "config.yaml"), "store: [unterminated\n")
	if _, err := Load(newFlags(t)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{BaseURL: "https://x", Store: StoreFile, LogLevel: "info", Timeout: time.Second, Tick: time.Second}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"sqlite", func(c *Config) { c.Store = StoreSQLite }, true},
		{"bad store", func(c *Config) { c.Store = "redis" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, false},
		{"negative refresh", func(c *Config) { c.RefreshInterval = -time.Second }, false},
		{"zero tick", func(c *Config) { c.Tick = 0 }, false},
		{"empty base", func(c *Config) { c.BaseURL = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok want %v", err, tt.ok)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	dir := isolate(t)
	if got := DefaultPath(); got != filepath.Join(dir, "sesame-cli", "config.yaml") {
		t.Fatalf("DefaultPath() = %q", got)
	}
}
