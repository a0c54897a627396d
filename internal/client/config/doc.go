// Package config loads runtime configuration for the market list CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend, e.g. http://127.0.0.1:8000
//	-i int      online status check interval (seconds)
//	-t int      HTTP request timeout (seconds), 0 (default) for none
//	-d string   path of the local SQLite database
//	-e string   default export directory
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds. Missing keys keep the defaults:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000",
//	  "online_check_interval": "3s",
//	  "request_timeout": "0s",
//	  "database_path": "data/client.db",
//	  "export_dir": "exports",
//	  "log_level": "warn"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
