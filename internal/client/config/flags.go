package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/marketlist/internal/flagx"
)

var knownFlags = []string{"-a", "-i", "-t", "-d", "-e", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with the -c/-config flag.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the backend")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds), 0 disables it")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.ExportDir, "e", cfg.ExportDir, "default export directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *onlineCheckInterval <= 0 {
		return fmt.Errorf("parse flags: online check interval must be positive")
	}
	if *requestTimeout < 0 {
		return fmt.Errorf("parse flags: request timeout must not be negative")
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.ServerBaseURL = strings.TrimRight(cfg.ServerBaseURL, "/")
	return nil
}
