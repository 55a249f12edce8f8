package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"newsmill/internal/config"
	"newsmill/internal/dedup"
	"newsmill/internal/keywords"
	"newsmill/internal/logging"
	"newsmill/internal/store"
)

func newKeywordsCommand(ctx *commandContext) *cobra.Command {
	keywordsCmd := &cobra.Command{
		Use:   "keywords",
		Short: "Inspect and manage the keyword queue",
	}

	keywordsCmd.AddCommand(newKeywordsListCommand(ctx))
	keywordsCmd.AddCommand(newKeywordsAddCommand(ctx))

	return keywordsCmd
}

func newKeywordsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued keywords in serving order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				entries, err := st.ListKeywords(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Keyword queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i, entry := range entries {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						entry.Keyword,
						entry.Slug,
						entry.CreatedAt.Local().Format(time.DateTime),
					})
				}
				table := renderTable(
					[]string{"#", "Keyword", "Slug", "Added"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newKeywordsAddCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <keyword>...",
		Short: "Add keywords to the back of the queue",
		Long: "Add keywords to the back of the queue. Keywords already queued or " +
			"matching a published topic are skipped; the queue is trimmed to its " +
			"configured capacity, dropping the oldest entries first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger := logging.NewNop()
				// No theme judge here: enqueue only needs the slug matcher.
				engine := dedup.NewEngine(st, nil, dedup.Thresholds{
					Similarity:    cfg.Dedup.SimilarityThreshold,
					MinSlugLength: cfg.Dedup.MinSlugLength,
					WindowDays:    cfg.Dedup.TopicWindowDays,
				}, dedup.DefaultPolicy(), logger)
				manager := keywords.NewManager(st, engine, cfg.Pipeline.KeywordQueueMax, logger)

				added, err := manager.Enqueue(cmd.Context(), args)
				if err != nil {
					return err
				}
				skipped := len(args) - added
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d keywords (%d skipped as duplicate or published)\n", added, skipped)
				return nil
			})
		},
	}
	return cmd
}
