// Package config loads settings from flags, SESAME_* environment variables
// and $XDG_CONFIG_HOME/sesame-cli/config.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is read once at startup and treated as immutable.
type Config struct {
	BaseURL string
	AppURL  string

	// Store selects the session backend: "file" or "sqlite". The journal
	// always lives in the SQLite database.
	Store       string
	SessionFile string // empty means ~/.sesame-cli/config.json
	DBPath      string // empty means $XDG_DATA_HOME/sesame-cli/sesame.db

	LogFile  string // empty means $XDG_STATE_HOME/sesame-cli/sesame.log
	LogLevel string

	Timeout         time.Duration
	RateLimit       float64 // requests per second, 0 disables
	RefreshInterval time.Duration
	Tick            time.Duration

	// File is the config file that was read, if any.
	File string
}

var defaults = map[string]any{
	"base-url":         "https://back-eu4.sesametime.com/api/v3",
	"app-url":          "https://app.sesametime.com",
	"store":            StoreFile,
	"session-file":     "",
	"db-path":          "",
	"log-file":         "",
	"log-level":        "info",
	"timeout":          30 * time.Second,
	"rate-limit":       2.0,
	"refresh-interval": 5 * time.Minute,
	"tick":             time.Second,
}

// RegisterFlags adds the config flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default $XDG_CONFIG_HOME/sesame-cli/config.yaml)")
	fs.String("base-url", defaults["base-url"].(string), "Sesame API base URL")
	fs.String("app-url", defaults["app-url"].(string), "Sesame web app URL sent as origin")
	fs.String("store", StoreFile, "session store backend: file or sqlite")
	fs.String("session-file", "", "session file for the file store (default ~/.sesame-cli/config.json)")
	fs.String("db-path", "", "SQLite database path (default $XDG_DATA_HOME/sesame-cli/sesame.db)")
	fs.String("log-file", "", "log file (default $XDG_STATE_HOME/sesame-cli/sesame.log)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Duration("timeout", defaults["timeout"].(time.Duration), "HTTP request timeout")
	fs.Float64("rate-limit", defaults["rate-limit"].(float64), "max API requests per second, 0 to disable")
	fs.Duration("refresh-interval", defaults["refresh-interval"].(time.Duration), "background refresh interval, 0 to disable")
	fs.Duration("tick", defaults["tick"].(time.Duration), "display refresh tick")
}

// DefaultPath returns $XDG_CONFIG_HOME/sesame-cli/config.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "sesame-cli", "config.yaml")
}

// Load resolves the configuration. fs must already be parsed; it may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetEnvPrefix("SESAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := ""
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit == "" {
		explicit = os.Getenv("SESAME_CONFIG")
	}

	path := explicit
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	file := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case explicit == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
			file = ""
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		BaseURL:         strings.TrimRight(v.GetString("base-url"), "/"),
		AppURL:          strings.TrimRight(v.GetString("app-url"), "/"),
		Store:           strings.ToLower(v.GetString("store")),
		SessionFile:     v.GetString("session-file"),
		DBPath:          v.GetString("db-path"),
		LogFile:         v.GetString("log-file"),
		LogLevel:        strings.ToLower(v.GetString("log-level")),
		Timeout:         v.GetDuration("timeout"),
		RateLimit:       v.GetFloat64("rate-limit"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		Tick:            v.GetDuration("tick"),
		File:            file,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "base-url is empty")
	}
	if c.Store != StoreFile && c.Store != StoreSQLite {
		problems = append(problems, fmt.Sprintf("store must be %q or %q, got %q", StoreFile, StoreSQLite, c.Store))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log-level %q", c.LogLevel))
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate-limit must not be negative")
	}
	if c.RefreshInterval < 0 {
		problems = append(problems, "refresh-interval must not be negative")
	}
	if c.Tick <= 0 {
		problems = append(problems, "tick must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
