package config

import (
	"encoding/json"
	"os"

	"fieldvault/internal/flagx"
	"fieldvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "60s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DatabaseDSN         string         `json:"database_dsn"`
	OperatorID          string         `json:"operator_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	StartupDelay        timex.Duration `json:"startup_delay"`
	CallTimeout         timex.Duration `json:"call_timeout"`
	MaxRetries          int            `json:"max_retries"`
	BatchSize           int            `json:"batch_size"`
	QuotaBytes          int64          `json:"quota_bytes"`
	QuotaWarnRatio      float64        `json:"quota_warn_ratio"`
	QuotaEvictRatio     float64        `json:"quota_evict_ratio"`
	QuotaCheckInterval  timex.Duration `json:"quota_check_interval"`
	TargetPhotoBytes    int            `json:"target_photo_bytes"`
	MaxDimension        int            `json:"max_dimension"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flag via flagx.JsonConfigFlags;
// when neither is set, no JSON is loaded. Only fields present in the file
// override the existing values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	fileName := flagx.JsonConfigFlags()
	if fileName == "" {
		return
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	applyJson(cfg, &jc)
}

func applyJson(cfg *Config, jc *JsonConfig) {
	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.OperatorID != "" {
		cfg.OperatorID = jc.OperatorID
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.StartupDelay.Duration != 0 {
		cfg.StartupDelay = jc.StartupDelay.Duration
	}
	if jc.CallTimeout.Duration != 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	if jc.BatchSize != 0 {
		cfg.BatchSize = jc.BatchSize
	}
	if jc.QuotaBytes != 0 {
		cfg.QuotaBytes = jc.QuotaBytes
	}
	if jc.QuotaWarnRatio != 0 {
		cfg.QuotaWarnRatio = jc.QuotaWarnRatio
	}
	if jc.QuotaEvictRatio != 0 {
		cfg.QuotaEvictRatio = jc.QuotaEvictRatio
	}
	if jc.QuotaCheckInterval.Duration != 0 {
		cfg.QuotaCheckInterval = jc.QuotaCheckInterval.Duration
	}
	if jc.TargetPhotoBytes != 0 {
		cfg.TargetPhotoBytes = jc.TargetPhotoBytes
	}
	if jc.MaxDimension != 0 {
		cfg.MaxDimension = jc.MaxDimension
	}
}
