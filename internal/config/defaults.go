package config

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/newsmill",
			LogDir:  "~/.local/share/newsmill/logs",
			SiteDir: "~/.local/share/newsmill/site",
		},
		Site: Site{
			Author: "newsmill",
		},
		Video: Video{
			BaseURL:      "https://www.googleapis.com/youtube/v3",
			LookbackDays: 3,
			PageSize:     10,
		},
		Search: Search{
			BaseURL:     "https://api.search.brave.com/res/v1/web/search",
			ResultCount: 5,
		},
		LLM: LLM{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Title:          "newsmill",
			TimeoutSeconds: 120,
		},
		Dedup: Dedup{
			SimilarityThreshold: 0.80,
			MinSlugLength:       5,
			TopicWindowDays:     5,
			RecentTitles:        10,
		},
		Pipeline: Pipeline{
			TargetCount:     1,
			MaxPending:      20,
			KeywordQueueMax: 50,
			RequestDelayMS:  1500,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			RunSummaries:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
