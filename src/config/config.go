package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the top-level configuration loaded from JSON.
type Config struct {
	Upstream   UpstreamConfig   `json:"upstream"`
	Policy     PolicyConfig     `json:"policy"`
	Limits     LimitsConfig     `json:"limits"`
	Cache      CacheConfig      `json:"cache"`
	Store      StoreConfig      `json:"store"`
	Batch      BatchConfig      `json:"batch"`
	Scheduled  *BatchConfig     `json:"scheduled,omitempty"`
	Quarantine QuarantineConfig `json:"quarantine"`
	Notify     NotifyConfig     `json:"notify"`
	S3         S3Config         `json:"s3"`
}

// UpstreamConfig controls how MCP clients connect to the service.
type UpstreamConfig struct {
	Transport string     `json:"transport"` // "stdio" or "http"
	HTTP      HTTPConfig `json:"http"`
}

// HTTPConfig holds HTTP listener settings.
type HTTPConfig struct {
	Addr string `json:"addr"` // e.g. ":8080"
	Path string `json:"path"` // e.g. "/mcp"
}

// PolicyConfig selects the default sanitization tier and an optional YAML
// pack of custom tiers.
type PolicyConfig struct {
	Default string `json:"default"`
	Pack    string `json:"pack,omitempty"`
}

// LimitsConfig bounds per-document parse and decode work.
type LimitsConfig struct {
	MaxDocumentBytes int `json:"maxDocumentBytes"`
	MaxDepth         int `json:"maxDepth"`
	MaxEncodedRun    int `json:"maxEncodedRun"`
	MaxEncodedRuns   int `json:"maxEncodedRuns"`
	MaxDecodeDepth   int `json:"maxDecodeDepth"`
}

// CacheConfig controls reuse of stored scan results.
type CacheConfig struct {
	Freshness Duration `json:"freshness"`
}

// StoreConfig selects the scan result backend.
type StoreConfig struct {
	Driver string `json:"driver"` // "memory" or "sqlite"
	DSN    string `json:"dsn,omitempty"`
}

// BatchConfig controls batch scans. When used as the scheduled profile,
// non-nil fields override the batch defaults.
type BatchConfig struct {
	BatchSize     *int      `json:"batchSize,omitempty"`
	Workers       *int      `json:"workers,omitempty"`
	MaxDuration   *Duration `json:"maxDuration,omitempty"`
	MemoryLimitMB *int      `json:"memoryLimitMB,omitempty"`
	Force         *bool     `json:"force,omitempty"`
}

// QuarantineConfig sets where quarantined files are moved. Root bounds
// the files quarantine and delete may touch; with no Root those actions
// refuse any record that names a file.
type QuarantineConfig struct {
	Dir  string `json:"dir"`
	Root string `json:"root,omitempty"`
}

// NotifyConfig controls post-scan alerts.
type NotifyConfig struct {
	Threshold string      `json:"threshold"` // low, medium, high or critical
	Slack     SlackConfig `json:"slack"`
}

// SlackConfig holds an incoming webhook. An empty URL disables Slack.
type SlackConfig struct {
	WebhookURL string `json:"webhookURL,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
}

// S3Config holds defaults for bucket sources.
type S3Config struct {
	Region string `json:"region,omitempty"`
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	DriverMemory = "memory"
	DriverSQLite = "sqlite"

	DefaultHTTPAddr = ":8080"
	DefaultHTTPPath = "/mcp"

	DefaultPolicy           = "advanced"
	DefaultMaxDocumentBytes = 5 << 20
	DefaultMaxDepth         = 256
	DefaultMaxEncodedRun    = 64 << 10
	DefaultMaxEncodedRuns   = 256
	DefaultMaxDecodeDepth   = 2
	DefaultFreshness        = 24 * time.Hour

	DefaultBatchSize     = 25
	DefaultWorkers       = 1
	DefaultMemoryLimitMB = 128

	ScheduledBatchSize     = 15
	ScheduledMemoryLimitMB = 64
	ScheduledMaxDuration   = 300 * time.Second

	DefaultQuarantineDir = "svg-quarantine"
	DefaultThreshold     = "high"
)

var severities = map[string]struct{}{"low": {}, "medium": {}, "high": {}, "critical": {}}

// Load reads and parses a JSON config file, applies defaults, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a validated configuration with every default applied,
// for running without a config file.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Upstream.Transport == "" {
		cfg.Upstream.Transport = TransportStdio
	}
	if cfg.Upstream.HTTP.Addr == "" {
		cfg.Upstream.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Upstream.HTTP.Path == "" {
		cfg.Upstream.HTTP.Path = DefaultHTTPPath
	}

	if cfg.Policy.Default == "" {
		cfg.Policy.Default = DefaultPolicy
	}

	if cfg.Limits.MaxDocumentBytes == 0 {
		cfg.Limits.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if cfg.Limits.MaxDepth == 0 {
		cfg.Limits.MaxDepth = DefaultMaxDepth
	}
	if cfg.Limits.MaxEncodedRun == 0 {
		cfg.Limits.MaxEncodedRun = DefaultMaxEncodedRun
	}
	if cfg.Limits.MaxEncodedRuns == 0 {
		cfg.Limits.MaxEncodedRuns = DefaultMaxEncodedRuns
	}
	if cfg.Limits.MaxDecodeDepth == 0 {
		cfg.Limits.MaxDecodeDepth = DefaultMaxDecodeDepth
	}

	if cfg.Cache.Freshness == 0 {
		cfg.Cache.Freshness = Duration(DefaultFreshness)
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMemory
	}

	if cfg.Batch.BatchSize == nil {
		cfg.Batch.BatchSize = intPtr(DefaultBatchSize)
	}
	if cfg.Batch.Workers == nil {
		cfg.Batch.Workers = intPtr(DefaultWorkers)
	}
	if cfg.Batch.MaxDuration == nil {
		cfg.Batch.MaxDuration = durationPtr(0)
	}
	if cfg.Batch.MemoryLimitMB == nil {
		cfg.Batch.MemoryLimitMB = intPtr(DefaultMemoryLimitMB)
	}
	if cfg.Batch.Force == nil {
		cfg.Batch.Force = boolPtr(false)
	}

	if cfg.Scheduled == nil {
		cfg.Scheduled = &BatchConfig{
			BatchSize:     intPtr(ScheduledBatchSize),
			MemoryLimitMB: intPtr(ScheduledMemoryLimitMB),
			MaxDuration:   durationPtr(ScheduledMaxDuration),
		}
	}

	if cfg.Quarantine.Dir == "" {
		cfg.Quarantine.Dir = DefaultQuarantineDir
	}
	if cfg.Notify.Threshold == "" {
		cfg.Notify.Threshold = DefaultThreshold
	}
}

func validate(cfg Config) error {
	if cfg.Upstream.Transport != TransportStdio && cfg.Upstream.Transport != TransportHTTP {
		return fmt.Errorf("upstream transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, cfg.Upstream.Transport)
	}

	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store: dsn is required for %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("store driver must be %q or %q, got %q", DriverMemory, DriverSQLite, cfg.Store.Driver)
	}

	if cfg.Limits.MaxDocumentBytes < 0 || cfg.Limits.MaxDepth < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if cfg.Limits.MaxDecodeDepth < 1 || cfg.Limits.MaxDecodeDepth > 8 {
		return fmt.Errorf("limits.maxDecodeDepth must be between 1 and 8, got %d", cfg.Limits.MaxDecodeDepth)
	}
	if cfg.Cache.Freshness < 0 {
		return fmt.Errorf("cache.freshness must not be negative")
	}

	if err := validateBatch("batch", cfg.Batch); err != nil {
		return err
	}
	if cfg.Scheduled != nil {
		if err := validateBatch("scheduled", Merge(&cfg.Batch, cfg.Scheduled)); err != nil {
			return err
		}
	}

	if _, ok := severities[cfg.Notify.Threshold]; !ok {
		return fmt.Errorf("notify.threshold must be one of low, medium, high, critical; got %q", cfg.Notify.Threshold)
	}

	return nil
}

func validateBatch(section string, b BatchConfig) error {
	if b.BatchSize != nil && *b.BatchSize <= 0 {
		return fmt.Errorf("%s.batchSize must be positive, got %d", section, *b.BatchSize)
	}
	if b.Workers != nil && *b.Workers <= 0 {
		return fmt.Errorf("%s.workers must be positive, got %d", section, *b.Workers)
	}
	if b.MemoryLimitMB != nil && *b.MemoryLimitMB < 0 {
		return fmt.Errorf("%s.memoryLimitMB must not be negative", section)
	}
	if b.MaxDuration != nil && *b.MaxDuration < 0 {
		return fmt.Errorf("%s.maxDuration must not be negative", section)
	}
	return nil
}

// Merge returns a BatchConfig with profile overrides applied on top of
// the batch defaults. Fields that are nil in the override use the global value.
func Merge(global, override *BatchConfig) BatchConfig {
	if override == nil {
		return *global
	}

	merged := *global

	if override.BatchSize != nil {
		merged.BatchSize = override.BatchSize
	}
	if override.Workers != nil {
		merged.Workers = override.Workers
	}
	if override.MaxDuration != nil {
		merged.MaxDuration = override.MaxDuration
	}
	if override.MemoryLimitMB != nil {
		merged.MemoryLimitMB = override.MemoryLimitMB
	}
	if override.Force != nil {
		merged.Force = override.Force
	}

	return merged
}

// Profile returns the batch settings for a named profile: "scheduled"
// applies the scheduled overrides, anything else returns the defaults.
func (c Config) Profile(name string) BatchConfig {
	if name == "scheduled" {
		return Merge(&c.Batch, c.Scheduled)
	}
	return c.Batch
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}
