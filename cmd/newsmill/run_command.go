package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"newsmill/internal/config"
	"newsmill/internal/logging"
	"newsmill/internal/notifications"
	"newsmill/internal/pipeline"
	"newsmill/internal/services"
	"newsmill/internal/services/textgen"
	"newsmill/internal/services/videosource"
	"newsmill/internal/services/websearch"
	"newsmill/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var keyword string
	var count int
	var stage string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass",
		Long: "Execute one bounded pipeline pass: ingest fresh videos, research and " +
			"generate articles, and publish up to the target count. A run that " +
			"publishes nothing still exits zero; only configuration problems fail the command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedStage, err := pipeline.ParseStage(stage)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("initialize logging: %w", err)
				}
				runID := uuid.NewString()
				logger = logger.With(logging.String(logging.FieldCorrelationID, runID))

				runner := pipeline.NewRunner(cfg, st, buildDeps(cfg, logger))
				runCtx := services.WithRequestID(cmd.Context(), runID)
				summary, err := runner.Run(runCtx, pipeline.Options{
					Keyword:     keyword,
					TargetCount: count,
					Stage:       parsedStage,
				})
				printSummary(cmd.OutOrStdout(), summary)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Run a single explicit topic instead of ingesting")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Override the configured publish target")
	cmd.Flags().StringVar(&stage, "stage", "", "Restrict the run to one stage (ingest, research, generate)")
	return cmd
}

// buildDeps wires the external service clients from configuration. One LLM
// client serves both the theme judge and the article generator.
func buildDeps(cfg *config.Config, logger *slog.Logger) pipeline.Deps {
	llm := textgen.NewClient(textgen.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		FallbackModel:  cfg.LLM.FallbackModel,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return pipeline.Deps{
		Videos: videosource.NewClient(videosource.Config{
			APIKey:  cfg.Video.APIKey,
			BaseURL: cfg.Video.BaseURL,
		}),
		Searcher: websearch.NewClient(websearch.Config{
			APIKey:  cfg.Search.APIKey,
			BaseURL: cfg.Search.BaseURL,
		}),
		Judge:     llm,
		Generator: llm,
		Notifier:  notifications.NewService(cfg),
		Logger:    logger,
	}
}

func printSummary(out io.Writer, summary pipeline.Summary) {
	fmt.Fprintf(out, "Run complete in %s\n", summary.Duration.Round(time.Millisecond))
	rows := [][]string{
		{"Stage", string(summary.Stage)},
		{"Target", fmt.Sprintf("%d", summary.Target)},
		{"Collected", fmt.Sprintf("%d", summary.Collected)},
		{"Published", fmt.Sprintf("%d", summary.Published)},
		{"Skipped", fmt.Sprintf("%d", summary.TotalSkipped())},
		{"Failed", fmt.Sprintf("%d", summary.TotalFailed())},
		{"Iterations", fmt.Sprintf("%d", summary.Iterations)},
		{"Requeued keywords", fmt.Sprintf("%d", summary.Requeued)},
		{"Keywords enqueued", fmt.Sprintf("%d", summary.KeywordsEnqueued)},
		{"Ingestion skipped", yesNo(summary.IngestionSkipped)},
		{"Budget exhausted", yesNo(summary.BudgetExhausted)},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if reasonRows := buildReasonRows(summary.Skipped, summary.Failed); len(reasonRows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Outcome", "Reason", "Count"}, reasonRows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}
	for _, title := range summary.PublishedTitles {
		fmt.Fprintf(out, "Published: %s\n", title)
	}
	for _, channel := range summary.QuotaChannels {
		fmt.Fprintf(out, "Video quota exhausted for channel %s\n", channel)
	}
}

func buildReasonRows(skipped, failed map[string]int) [][]string {
	rows := make([][]string, 0, len(skipped)+len(failed))
	for _, reason := range sortedKeys(skipped) {
		rows = append(rows, []string{"skipped", reason, fmt.Sprintf("%d", skipped[reason])})
	}
	for _, reason := range sortedKeys(failed) {
		rows = append(rows, []string{"failed", reason, fmt.Sprintf("%d", failed[reason])})
	}
	return rows
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
