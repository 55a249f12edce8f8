// Package admission applies backpressure to the candidate backlog: ingestion
// pauses while enough work is already pending, and excess pending candidates
// are evicted oldest-first.
package admission

import (
	"context"
	"log/slog"

	"newsmill/internal/candidate"
	"newsmill/internal/logging"
	"newsmill/internal/services"
)

// Store is the persistence surface the controller drives.
type Store interface {
	CountPending(ctx context.Context) (int, error)
	CandidatesByStatus(ctx context.Context, statuses ...candidate.Status) ([]*candidate.Candidate, error)
	UpdateCandidate(ctx context.Context, c *candidate.Candidate) error
}

// Controller decides when ingestion may run and enforces the pending cap.
type Controller struct {
	store     Store
	threshold int
	logger    *slog.Logger
}

// NewController builds an admission controller. threshold is the pending
// count at or above which ingestion is skipped.
func NewController(st Store, threshold int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:     st,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "admission"),
	}
}

// ShouldIngest reports whether there is room in the backlog for new
// candidates. With the threshold disabled (zero or negative) ingestion always
// runs.
func (c *Controller) ShouldIngest(ctx context.Context) (bool, int, error) {
	pending, err := c.store.CountPending(ctx)
	if err != nil {
		return false, 0, services.Wrap(services.ErrTransient, "admission", "should-ingest", "count pending", err)
	}
	if c.threshold <= 0 {
		return true, pending, nil
	}
	return pending < c.threshold, pending, nil
}

// EvictOverCap skips the oldest pending candidates (collected or researched,
// by creation time) until the pending count is back at the threshold, and
// returns how many were evicted.
func (c *Controller) EvictOverCap(ctx context.Context) (int, error) {
	if c.threshold <= 0 {
		return 0, nil
	}
	pending, err := c.store.CountPending(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "admission", "evict", "count pending", err)
	}
	excess := pending - c.threshold
	if excess <= 0 {
		return 0, nil
	}

	backlog, err := c.store.CandidatesByStatus(ctx, candidate.StatusCollected, candidate.StatusResearched)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "admission", "evict", "list pending", err)
	}

	evicted := 0
	for _, cand := range backlog {
		if evicted >= excess {
			break
		}
		if err := cand.MarkSkipped(candidate.SkipBacklogOverflow); err != nil {
			return evicted, services.Wrap(services.ErrTransient, "admission", "evict", "mark skipped", err)
		}
		if err := c.store.UpdateCandidate(ctx, cand); err != nil {
			return evicted, services.Wrap(services.ErrTransient, "admission", "evict", "persist skip", err)
		}
		c.logger.Info("evicted candidate over backlog cap",
			logging.String(logging.FieldCandidateID, cand.ID),
			logging.String("topic_key", cand.TopicKey),
		)
		evicted++
	}
	return evicted, nil
}
