package config

import (
	"errors"
	"fmt"
	"strings"
)

// normalize expands paths and trims string fields in place.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.SiteDir, err = expandPath(c.Paths.SiteDir); err != nil {
		return err
	}

	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Site.Author = strings.TrimSpace(c.Site.Author)

	c.Video.APIKey = strings.TrimSpace(c.Video.APIKey)
	c.Video.BaseURL = strings.TrimRight(strings.TrimSpace(c.Video.BaseURL), "/")
	channels := make([]string, 0, len(c.Video.ChannelIDs))
	for _, id := range c.Video.ChannelIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			channels = append(channels, trimmed)
		}
	}
	c.Video.ChannelIDs = channels

	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	c.Search.BaseURL = strings.TrimSpace(c.Search.BaseURL)

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.FallbackModel = strings.TrimSpace(c.LLM.FallbackModel)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks structural configuration invariants. Credential presence is
// checked separately by the pipeline preflight so inspection commands work on
// a bare config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("config: paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("config: paths.log_dir is required")
	}
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold >= 1 {
		return fmt.Errorf("config: dedup.similarity_threshold must be in (0, 1), got %v", c.Dedup.SimilarityThreshold)
	}
	if c.Dedup.MinSlugLength < 0 {
		return fmt.Errorf("config: dedup.min_slug_length must not be negative, got %d", c.Dedup.MinSlugLength)
	}
	if c.Dedup.TopicWindowDays < 0 {
		return fmt.Errorf("config: dedup.topic_window_days must not be negative, got %d", c.Dedup.TopicWindowDays)
	}
	if c.Dedup.RecentTitles <= 0 {
		return fmt.Errorf("config: dedup.recent_titles must be positive, got %d", c.Dedup.RecentTitles)
	}
	if c.Pipeline.TargetCount <= 0 {
		return fmt.Errorf("config: pipeline.target_count must be positive, got %d", c.Pipeline.TargetCount)
	}
	if c.Pipeline.MaxPending <= 0 {
		return fmt.Errorf("config: pipeline.max_pending must be positive, got %d", c.Pipeline.MaxPending)
	}
	if c.Pipeline.KeywordQueueMax <= 0 {
		return fmt.Errorf("config: pipeline.keyword_queue_max must be positive, got %d", c.Pipeline.KeywordQueueMax)
	}
	if c.Pipeline.RequestDelayMS < 0 {
		return fmt.Errorf("config: pipeline.request_delay_ms must not be negative, got %d", c.Pipeline.RequestDelayMS)
	}
	if c.Video.LookbackDays <= 0 {
		return fmt.Errorf("config: video.lookback_days must be positive, got %d", c.Video.LookbackDays)
	}
	if c.Video.PageSize <= 0 {
		return fmt.Errorf("config: video.page_size must be positive, got %d", c.Video.PageSize)
	}
	if c.Search.ResultCount <= 0 {
		return fmt.Errorf("config: search.result_count must be positive, got %d", c.Search.ResultCount)
	}
	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	return nil
}
