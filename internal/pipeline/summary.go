package pipeline

import "time"

// Summary is the outcome ledger of one run. Skip and failure counts are keyed
// by reason code so operators can tell "no fresh topics" from "pipeline
// misconfigured".
type Summary struct {
	Target int
	Stage  Stage

	Collected        int
	Published        int
	PublishedTitles  []string
	Skipped          map[string]int
	Failed           map[string]int
	Iterations       int
	Requeued         int
	KeywordsEnqueued int
	QuotaChannels    []string

	IngestionSkipped bool
	BudgetExhausted  bool
	Duration         time.Duration
}

// NewSummary builds an empty summary for a run.
func NewSummary(target int, stage Stage) Summary {
	return Summary{
		Target:  target,
		Stage:   stage,
		Skipped: map[string]int{},
		Failed:  map[string]int{},
	}
}

// TotalSkipped sums skips across reasons.
func (s Summary) TotalSkipped() int {
	total := 0
	for _, count := range s.Skipped {
		total += count
	}
	return total
}

// TotalFailed sums failures across reasons.
func (s Summary) TotalFailed() int {
	total := 0
	for _, count := range s.Failed {
		total += count
	}
	return total
}
