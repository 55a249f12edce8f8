package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"newsmill/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the video, search, and llm API keys before running newsmill.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configFlag := cmd.Flag("config").Value.String()
			cfg, path, exists, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s (exists: %s)\n", path, yesNo(exists))
			rows := [][]string{
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"paths.site_dir", cfg.Paths.SiteDir},
				{"site.base_url", cfg.Site.BaseURL},
				{"site.author", cfg.Site.Author},
				{"video.api_key", redact(cfg.Video.APIKey)},
				{"video.channel_ids", strings.Join(cfg.Video.ChannelIDs, ", ")},
				{"video.lookback_days", fmt.Sprintf("%d", cfg.Video.LookbackDays)},
				{"video.page_size", fmt.Sprintf("%d", cfg.Video.PageSize)},
				{"search.api_key", redact(cfg.Search.APIKey)},
				{"search.result_count", fmt.Sprintf("%d", cfg.Search.ResultCount)},
				{"llm.api_key", redact(cfg.LLM.APIKey)},
				{"llm.model", cfg.LLM.Model},
				{"llm.fallback_model", cfg.LLM.FallbackModel},
				{"dedup.similarity_threshold", fmt.Sprintf("%.2f", cfg.Dedup.SimilarityThreshold)},
				{"dedup.min_slug_length", fmt.Sprintf("%d", cfg.Dedup.MinSlugLength)},
				{"dedup.topic_window_days", fmt.Sprintf("%d", cfg.Dedup.TopicWindowDays)},
				{"pipeline.target_count", fmt.Sprintf("%d", cfg.Pipeline.TargetCount)},
				{"pipeline.max_pending", fmt.Sprintf("%d", cfg.Pipeline.MaxPending)},
				{"pipeline.keyword_queue_max", fmt.Sprintf("%d", cfg.Pipeline.KeywordQueueMax)},
				{"pipeline.request_delay_ms", fmt.Sprintf("%d", cfg.Pipeline.RequestDelayMS)},
				{"notifications.ntfy_topic", cfg.Notifications.NtfyTopic},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "(set)"
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configFlag := cmd.Flag("config").Value.String()
			cfg, path, exists, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
