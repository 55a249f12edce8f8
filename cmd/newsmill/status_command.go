package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				stats, err := st.CandidateStats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				total := 0
				for _, status := range candidate.AllStatuses() {
					count, ok := stats[status]
					if !ok {
						continue
					}
					total += count
					rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No candidates")
				} else {
					rows = append(rows, []string{"total", fmt.Sprintf("%d", total)})
					fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows,
						[]columnAlignment{alignLeft, alignRight}))
				}

				pending, err := st.CountPending(cmd.Context())
				if err != nil {
					return err
				}
				queued, err := st.CountKeywords(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pending candidates: %d", pending)
				if cfg.Pipeline.MaxPending > 0 {
					fmt.Fprintf(out, " (cap %d)", cfg.Pipeline.MaxPending)
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Queued keywords: %d", queued)
				if cfg.Pipeline.KeywordQueueMax > 0 {
					fmt.Fprintf(out, " (cap %d)", cfg.Pipeline.KeywordQueueMax)
				}
				fmt.Fprintln(out)

				posts, err := st.PublishedPosts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Published posts: %d\n", len(posts))
				if len(posts) > recentPostLimit {
					posts = posts[len(posts)-recentPostLimit:]
				}
				for _, post := range posts {
					fmt.Fprintf(out, "  %s  %s\n", post.PublishedAt.Local().Format(time.DateOnly), post.Title)
				}
				return nil
			})
		},
	}
}

const recentPostLimit = 5
