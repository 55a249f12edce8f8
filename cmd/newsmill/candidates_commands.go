package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/services"
	"newsmill/internal/store"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	candidatesCmd := &cobra.Command{
		Use:   "candidates",
		Short: "Inspect and manage topic candidates",
	}

	candidatesCmd.AddCommand(newCandidatesListCommand(ctx))
	candidatesCmd.AddCommand(newCandidatesShowCommand(ctx))
	candidatesCmd.AddCommand(newCandidatesClearCommand(ctx))

	return candidatesCmd
}

func newCandidatesListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List topic candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				items, err := st.CandidatesByStatus(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No candidates")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						truncate(item.Title, 48),
						string(item.Status),
						exitReason(item),
						item.CreatedAt.Local().Format(time.DateTime),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Reason", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by candidate status (repeatable)")
	return cmd
}

func newCandidatesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <candidate-id>",
		Short: "Show one candidate in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				item, err := st.GetCandidate(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("candidate %q: %w", args[0], services.ErrNotFound)
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"ID", item.ID},
					{"Title", item.Title},
					{"Status", string(item.Status)},
					{"Topic key", item.TopicKey},
					{"Search query", item.SearchQuery},
					{"Query source", item.QuerySource},
					{"Source video", item.SourceVideoID},
					{"Skip reason", item.SkipReason},
					{"Fail reason", item.FailReason},
					{"Created", item.CreatedAt.Local().Format(time.DateTime)},
					{"Updated", item.UpdatedAt.Local().Format(time.DateTime)},
					{"Researched", formatOptionalTime(item.ResearchedAt)},
					{"Generated", formatOptionalTime(item.GeneratedAt)},
					{"Transcript", yesNo(item.Transcript != "")},
					{"Research data", yesNo(item.ResearchJSON != "")},
					{"Article draft", yesNo(item.ArticleJSON != "")},
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func newCandidatesClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-terminal",
		Short: "Remove published, skipped, and failed candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				removed, err := st.ClearTerminal(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d terminal candidates\n", removed)
				return nil
			})
		},
	}
}

func parseStatuses(values []string) ([]candidate.Status, error) {
	statuses := make([]candidate.Status, 0, len(values))
	for _, value := range values {
		status, ok := candidate.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown candidate status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func exitReason(c *candidate.Candidate) string {
	switch {
	case c.SkipReason != "":
		return c.SkipReason
	case c.FailReason != "":
		return c.FailReason
	default:
		return ""
	}
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Local().Format(time.DateTime)
}
