// Package config loads runtime configuration for the field agent.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-d string   path of the local SQLite database
//	-u string   operator identifier
//	-i int      online status check interval (seconds)
//	-s int      sync interval (seconds)
//	-q int      local storage quota (megabytes)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "60s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://api.example.com",
//	  "database_dsn": "/data/fieldvault.db",
//	  "operator_id": "op-1042",
//	  "online_check_interval": "3s",
//	  "sync_interval": "60s",
//	  "startup_delay": "5s",
//	  "call_timeout": "30s",
//	  "max_retries": 5,
//	  "batch_size": 5,
//	  "quota_bytes": 536870912,
//	  "quota_warn_ratio": 0.8,
//	  "quota_evict_ratio": 0.9,
//	  "quota_check_interval": "5m",
//	  "target_photo_bytes": 307200,
//	  "max_dimension": 1600
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
