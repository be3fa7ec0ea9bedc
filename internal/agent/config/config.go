package config

import "time"

// Config holds runtime settings for the field agent.
type Config struct {
	// ServerURL is the base URL of the backend API, no trailing slash.
	ServerURL string

	// DatabaseDSN locates the local SQLite database file.
	DatabaseDSN string

	// OperatorID identifies the device operator; it is baked into every
	// integrity hash, so it must be stable for the install.
	OperatorID string

	// OnlineCheckInterval is how often the agent probes backend reachability.
	OnlineCheckInterval time.Duration

	// SyncInterval is the periodic drain trigger.
	SyncInterval time.Duration

	// StartupDelay postpones the first drain after launch.
	StartupDelay time.Duration

	// CallTimeout bounds each individual network call.
	CallTimeout time.Duration

	// MaxRetries caps upload attempts per record.
	MaxRetries int

	// BatchSize bounds upload concurrency per drain cycle.
	BatchSize int

	// QuotaBytes is the local storage budget for evidence payloads.
	QuotaBytes int64

	// QuotaWarnRatio and QuotaEvictRatio are the usage fractions at which
	// the agent warns and starts evicting synced records.
	QuotaWarnRatio  float64
	QuotaEvictRatio float64

	// QuotaCheckInterval is the periodic quota re-check.
	QuotaCheckInterval time.Duration

	// TargetPhotoBytes and MaxDimension drive photo compression.
	TargetPhotoBytes int
	MaxDimension     int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "fieldvault.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 60 * time.Second
	c.StartupDelay = 5 * time.Second
	c.CallTimeout = 30 * time.Second
	c.MaxRetries = 5
	c.BatchSize = 5
	c.QuotaBytes = 512 << 20
	c.QuotaWarnRatio = 0.80
	c.QuotaEvictRatio = 0.90
	c.QuotaCheckInterval = 5 * time.Minute
	c.TargetPhotoBytes = 300 << 10
	c.MaxDimension = 1600
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
