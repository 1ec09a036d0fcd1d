package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	cfg := `{
		"upstream": {"transport": "stdio"},
		"policy": {"default": "strict"},
		"store": {"driver": "sqlite", "dsn": "scans.db"}
	}`

	path := writeTemp(t, cfg)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Upstream.Transport != TransportStdio {
		t.Errorf("upstream transport = %q, want %q", got.Upstream.Transport, TransportStdio)
	}
	if got.Policy.Default != "strict" {
		t.Errorf("policy.default = %q, want %q", got.Policy.Default, "strict")
	}
	if got.Store.Driver != DriverSQLite || got.Store.DSN != "scans.db" {
		t.Errorf("store = %+v, want sqlite scans.db", got.Store)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTemp(t, `{}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Upstream.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("default http addr = %q, want %q", got.Upstream.HTTP.Addr, DefaultHTTPAddr)
	}
	if got.Policy.Default != DefaultPolicy {
		t.Errorf("default policy = %q, want %q", got.Policy.Default, DefaultPolicy)
	}
	if got.Limits.MaxDocumentBytes != DefaultMaxDocumentBytes {
		t.Errorf("default maxDocumentBytes = %d, want %d", got.Limits.MaxDocumentBytes, DefaultMaxDocumentBytes)
	}
	if got.Limits.MaxDecodeDepth != DefaultMaxDecodeDepth {
		t.Errorf("default maxDecodeDepth = %d, want %d", got.Limits.MaxDecodeDepth, DefaultMaxDecodeDepth)
	}
	if got.Cache.Freshness.Std() != 24*time.Hour {
		t.Errorf("default freshness = %v, want 24h", got.Cache.Freshness.Std())
	}
	if got.Store.Driver != DriverMemory {
		t.Errorf("default store driver = %q, want %q", got.Store.Driver, DriverMemory)
	}
	if *got.Batch.BatchSize != DefaultBatchSize {
		t.Errorf("default batchSize = %d, want %d", *got.Batch.BatchSize, DefaultBatchSize)
	}
	if *got.Batch.MemoryLimitMB != DefaultMemoryLimitMB {
		t.Errorf("default memoryLimitMB = %d, want %d", *got.Batch.MemoryLimitMB, DefaultMemoryLimitMB)
	}
	if *got.Batch.Force {
		t.Error("default force should be false")
	}
	if got.Notify.Threshold != DefaultThreshold {
		t.Errorf("default threshold = %q, want %q", got.Notify.Threshold, DefaultThreshold)
	}
}

func TestLoad_ScheduledProfile(t *testing.T) {
	path := writeTemp(t, `{"batch": {"workers": 4}}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := got.Profile("scheduled")
	if *p.BatchSize != ScheduledBatchSize {
		t.Errorf("scheduled batchSize = %d, want %d", *p.BatchSize, ScheduledBatchSize)
	}
	if *p.MemoryLimitMB != ScheduledMemoryLimitMB {
		t.Errorf("scheduled memoryLimitMB = %d, want %d", *p.MemoryLimitMB, ScheduledMemoryLimitMB)
	}
	if p.MaxDuration.Std() != ScheduledMaxDuration {
		t.Errorf("scheduled maxDuration = %v, want %v", p.MaxDuration.Std(), ScheduledMaxDuration)
	}
	if *p.Workers != 4 {
		t.Errorf("scheduled workers = %d, want 4 from batch", *p.Workers)
	}

	if d := got.Profile("manual"); *d.BatchSize != DefaultBatchSize {
		t.Errorf("manual batchSize = %d, want %d", *d.BatchSize, DefaultBatchSize)
	}
}

func TestLoad_HTTPUpstream(t *testing.T) {
	cfg := `{"upstream": {"transport": "http", "http": {"addr": ":9090", "path": "/api"}}}`

	path := writeTemp(t, cfg)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Upstream.Transport != TransportHTTP {
		t.Errorf("transport = %q, want %q", got.Upstream.Transport, TransportHTTP)
	}
	if got.Upstream.HTTP.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", got.Upstream.HTTP.Addr, ":9090")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
	}{
		{"transport", `{"upstream": {"transport": "grpc"}}`},
		{"store driver", `{"store": {"driver": "mongo"}}`},
		{"sqlite without dsn", `{"store": {"driver": "sqlite"}}`},
		{"zero batch size", `{"batch": {"batchSize": 0}}`},
		{"negative workers", `{"batch": {"workers": -1}}`},
		{"scheduled override", `{"scheduled": {"batchSize": -5}}`},
		{"threshold", `{"notify": {"threshold": "severe"}}`},
		{"duration", `{"cache": {"freshness": "one day"}}`},
		{"numeric duration", `{"cache": {"freshness": 86400}}`},
		{"decode depth", `{"limits": {"maxDecodeDepth": 20}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.cfg)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", tt.cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeTemp(t, `{not json}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Errorf("Default() invalid: %v", err)
	}
}

func TestMerge_NilOverride(t *testing.T) {
	global := BatchConfig{BatchSize: intPtr(25)}
	merged := Merge(&global, nil)
	if *merged.BatchSize != 25 {
		t.Errorf("batchSize = %d, want 25", *merged.BatchSize)
	}
}

func TestMerge_OverrideFields(t *testing.T) {
	global := BatchConfig{
		BatchSize:     intPtr(25),
		Workers:       intPtr(2),
		MemoryLimitMB: intPtr(128),
		Force:         boolPtr(false),
	}
	override := BatchConfig{
		BatchSize: intPtr(15),
		Force:     boolPtr(true),
	}

	merged := Merge(&global, &override)

	if *merged.BatchSize != 15 {
		t.Errorf("batchSize = %d, want 15", *merged.BatchSize)
	}
	if *merged.Workers != 2 {
		t.Error("workers should remain 2 from global")
	}
	if !*merged.Force {
		t.Error("force should be true from override")
	}
	if *global.BatchSize != 25 {
		t.Error("global must not be mutated")
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"1h30m"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 90*time.Minute {
		t.Errorf("duration = %v, want 1h30m", d.Std())
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"1h30m0s"` {
		t.Errorf("marshal = %s, want \"1h30m0s\"", out)
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
