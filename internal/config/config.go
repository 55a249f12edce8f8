package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	SiteDir string `toml:"site_dir"`
}

// Video contains configuration for the video platform metadata API.
type Video struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	ChannelIDs   []string `toml:"channel_ids"`
	LookbackDays int      `toml:"lookback_days"`
	PageSize     int      `toml:"page_size"`
}

// Search contains configuration for the web search API.
type Search struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	ResultCount int    `toml:"result_count"`
}

// Site contains metadata stamped into rendered documents.
type Site struct {
	BaseURL string `toml:"base_url"`
	Author  string `toml:"author"`
}

// LLM contains text-generation service connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	FallbackModel  string `toml:"fallback_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Dedup contains duplicate-detection thresholds.
//
// SimilarityThreshold and MinSlugLength are carried over from the source
// pipeline unchanged; they have not been calibrated against labeled pairs.
type Dedup struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MinSlugLength       int     `toml:"min_slug_length"`
	TopicWindowDays     int     `toml:"topic_window_days"`
	RecentTitles        int     `toml:"recent_titles"`
}

// Pipeline contains run-loop bounds and pacing.
type Pipeline struct {
	TargetCount     int `toml:"target_count"`
	MaxPending      int `toml:"max_pending"`
	KeywordQueueMax int `toml:"keyword_queue_max"`
	RequestDelayMS  int `toml:"request_delay_ms"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummaries   bool   `toml:"run_summaries"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for newsmill.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and generated-site directories
//   - Site: canonical URL and byline metadata for rendered documents
//   - Video: video platform metadata fetch
//   - Search: web search API
//   - LLM: text-generation service, including the fallback model
//   - Dedup: duplicate-detection thresholds and windows
//   - Pipeline: publish targets, backlog caps, and call pacing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Site          Site          `toml:"site"`
	Video         Video         `toml:"video"`
	Search        Search        `toml:"search"`
	LLM           LLM           `toml:"llm"`
	Dedup         Dedup         `toml:"dedup"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/newsmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newsmill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs before any state mutation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.SiteDir) != "" {
		if err := os.MkdirAll(filepath.Join(c.Paths.SiteDir, "posts"), 0o755); err != nil {
			return fmt.Errorf("create site directory %q: %w", c.Paths.SiteDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
