package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"newsmill/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Dedup.SimilarityThreshold != 0.80 {
		t.Fatalf("default similarity threshold = %v", cfg.Dedup.SimilarityThreshold)
	}
	if cfg.Pipeline.TargetCount != 1 {
		t.Fatalf("default target count = %d", cfg.Pipeline.TargetCount)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[paths]
data_dir = "/tmp/newsmill-test/data"
log_dir = "/tmp/newsmill-test/logs"
site_dir = "/tmp/newsmill-test/site"

[video]
api_key = "  key  "
channel_ids = ["UC123", "  ", "UC456"]

[dedup]
topic_window_days = 7

[logging]
format = "JSON"
`)
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Video.APIKey != "key" {
		t.Fatalf("api key not trimmed: %q", cfg.Video.APIKey)
	}
	if len(cfg.Video.ChannelIDs) != 2 {
		t.Fatalf("expected blank channel ids dropped, got %v", cfg.Video.ChannelIDs)
	}
	if cfg.Dedup.TopicWindowDays != 7 {
		t.Fatalf("topic window = %d", cfg.Dedup.TopicWindowDays)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not lowercased: %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	path := writeConfig(t, `
[dedup]
similarity_threshold = 1.5
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	path := writeConfig(t, `
[logging]
format = "xml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Pipeline.KeywordQueueMax != 50 {
		t.Fatalf("sample keyword queue max = %d", cfg.Pipeline.KeywordQueueMax)
	}
}
