package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the market list CLI.
//
// Fields:
//   - ServerBaseURL: scheme://host[:port] of the REST backend; paths are fixed.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: optional upper bound for a single HTTP request; zero
//     (the default) leaves requests bounded only by their context.
//   - DatabasePath: SQLite file holding the credential store.
//   - ExportDir: default directory for list exports.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerBaseURL       string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DatabasePath        string
	ExportDir           string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 0
	c.DatabasePath = filepath.Join("data", "client.db")
	c.ExportDir = "exports"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
