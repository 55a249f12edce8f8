// Package ingest turns recently published channel videos into collected
// candidates, applying the duplicate checks in fixed order before any
// candidate is created.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newsmill/internal/candidate"
	"newsmill/internal/dedup"
	"newsmill/internal/logging"
	"newsmill/internal/services"
	"newsmill/internal/services/videosource"
)

// VideoLister fetches recent channel videos.
type VideoLister interface {
	ListRecent(ctx context.Context, channelID string, lookbackDays, pageSize int) ([]videosource.VideoItem, error)
}

// Store is the persistence surface ingestion drives.
type Store interface {
	GetCandidate(ctx context.Context, id string) (*candidate.Candidate, error)
	InsertCandidate(ctx context.Context, c *candidate.Candidate) error
	UpdateCandidate(ctx context.Context, c *candidate.Candidate) error
	ActiveBySourceVideoID(ctx context.Context, sourceVideoID string) (*candidate.Candidate, error)
	RecentPublishedTitles(ctx context.Context, limit int) ([]string, error)
	PublishedSlugs(ctx context.Context) ([]string, error)
}

// Options bound one ingestion pass.
type Options struct {
	ChannelIDs   []string
	LookbackDays int
	PageSize     int
}

// Result summarizes one ingestion pass.
type Result struct {
	Created         []*candidate.Candidate
	SkippedByReason map[string]int
	QuotaChannels   []string
	FailedChannels  []string
}

// Ingestor creates collected candidates from fresh videos.
type Ingestor struct {
	store        Store
	videos       VideoLister
	engine       *dedup.Engine
	recentTitles int
	logger       *slog.Logger
}

// NewIngestor builds an ingestor. recentTitles bounds how many published
// titles feed the semantic judgment.
func NewIngestor(st Store, videos VideoLister, engine *dedup.Engine, recentTitles int, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if recentTitles <= 0 {
		recentTitles = 10
	}
	return &Ingestor{
		store:        st,
		videos:       videos,
		engine:       engine,
		recentTitles: recentTitles,
		logger:       logging.NewComponentLogger(logger, "ingest"),
	}
}

// Run fetches each channel's recent videos and creates candidates for the
// fresh ones. Quota exhaustion skips the channel and keeps the run alive;
// any other listing failure aborts ingestion for that channel only. The
// processed ledger is written at publication, so a video whose candidate
// exited skipped or failed may be examined again on a later run.
func (i *Ingestor) Run(ctx context.Context, opts Options) (Result, error) {
	result := Result{SkippedByReason: map[string]int{}}

	recentTitles, err := i.store.RecentPublishedTitles(ctx, i.recentTitles)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "ingest", "run", "load recent titles", err)
	}
	publishedSlugs, err := i.store.PublishedSlugs(ctx)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "ingest", "run", "load published slugs", err)
	}

	for _, channelID := range opts.ChannelIDs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		items, err := i.videos.ListRecent(ctx, channelID, opts.LookbackDays, opts.PageSize)
		if err != nil {
			if errors.Is(err, services.ErrQuotaExhausted) {
				i.logger.Warn("video quota exhausted, skipping channel",
					logging.String("channel_id", channelID))
				result.QuotaChannels = append(result.QuotaChannels, channelID)
				continue
			}
			if services.Fatal(err) {
				return result, err
			}
			i.logger.Error("channel listing failed",
				logging.String("channel_id", channelID),
				logging.Error(err))
			result.FailedChannels = append(result.FailedChannels, channelID)
			continue
		}

		for _, item := range items {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if err := i.ingestVideo(ctx, item, recentTitles, publishedSlugs, &result); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (i *Ingestor) ingestVideo(
	ctx context.Context,
	item videosource.VideoItem,
	recentTitles []string,
	publishedSlugs []string,
	result *Result,
) error {
	log := i.logger.With(logging.String("source_video_id", item.ID))

	seen, err := i.engine.VideoSeen(ctx, item.ID)
	if err != nil {
		// Ledger read failure resolves as seen rather than risking a repeat.
		log.Warn("processed-ledger lookup failed, treating video as seen", logging.Error(err))
		seen = true
	}
	if seen {
		result.SkippedByReason[candidate.SkipVideoIDDuplicate]++
		return nil
	}
	active, err := i.store.ActiveBySourceVideoID(ctx, item.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "check active candidate", err)
	}
	if active != nil {
		result.SkippedByReason[candidate.SkipVideoIDDuplicate]++
		return nil
	}

	cand := candidate.New(item.ID, item.Title, item.Description)
	cand.Transcript = item.Description

	// A terminal candidate from an earlier examination leaves its row behind;
	// disambiguate the rediscovery by creation time.
	if existing, err := i.store.GetCandidate(ctx, cand.ID); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "check existing candidate", err)
	} else if existing != nil {
		cand.ID = fmt.Sprintf("%s-%d", cand.ID, cand.CreatedAt.Unix())
	}

	if reason := i.duplicateReason(ctx, cand, recentTitles, publishedSlugs); reason != "" {
		if err := i.insertSkipped(ctx, cand, reason); err != nil {
			return err
		}
		log.Info("video skipped", logging.String(logging.FieldReason, reason))
		result.SkippedByReason[reason]++
		return nil
	}

	if cand.Transcript == "" {
		if err := i.insertSkipped(ctx, cand, candidate.SkipTranscriptUnavailable); err != nil {
			return err
		}
		log.Info("video skipped", logging.String(logging.FieldReason, candidate.SkipTranscriptUnavailable))
		result.SkippedByReason[candidate.SkipTranscriptUnavailable]++
		return nil
	}

	if err := i.store.InsertCandidate(ctx, cand); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "insert candidate", err)
	}
	log.Info("candidate collected",
		logging.String(logging.FieldCandidateID, cand.ID),
		logging.String("topic_key", cand.TopicKey))
	result.Created = append(result.Created, cand)
	return nil
}

// duplicateReason applies the topic-level checks in order of increasing cost:
// fuzzy slug against published topics, the topic-history window, then the
// semantic theme judgment.
func (i *Ingestor) duplicateReason(
	ctx context.Context,
	cand *candidate.Candidate,
	recentTitles []string,
	publishedSlugs []string,
) string {
	for _, slug := range publishedSlugs {
		if i.engine.FuzzySlugDuplicate(cand.TopicKey, slug) {
			return candidate.SkipDuplicateTopic
		}
	}
	if i.engine.TopicRecentlyPublished(ctx, cand.TopicKey) == dedup.VerdictDuplicate {
		return candidate.SkipDuplicateTopic
	}
	if verdict, _ := i.engine.ThemeDuplicate(ctx, cand.Title, recentTitles); verdict == dedup.VerdictDuplicate {
		return candidate.SkipThemeDuplicate
	}
	return ""
}

func (i *Ingestor) insertSkipped(ctx context.Context, cand *candidate.Candidate, reason string) error {
	if err := i.store.InsertCandidate(ctx, cand); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "insert candidate", err)
	}
	if err := cand.MarkSkipped(reason); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "mark skipped", err)
	}
	if err := i.store.UpdateCandidate(ctx, cand); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "video", "persist skip", err)
	}
	return nil
}

// FromKeyword creates a collected candidate for an explicit or queued
// keyword, applying the same topic-level duplicate checks as video ingestion.
func (i *Ingestor) FromKeyword(ctx context.Context, keyword string) (*candidate.Candidate, string, error) {
	cand := candidate.FromKeyword(keyword)

	// Keyword identifiers are slug-derived; a terminal run for the same
	// keyword leaves its row behind, so disambiguate reruns by creation time.
	if existing, err := i.store.GetCandidate(ctx, cand.ID); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "ingest", "keyword", "check existing candidate", err)
	} else if existing != nil {
		cand.ID = fmt.Sprintf("%s-%d", cand.ID, cand.CreatedAt.Unix())
	}

	recentTitles, err := i.store.RecentPublishedTitles(ctx, i.recentTitles)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "ingest", "keyword", "load recent titles", err)
	}
	publishedSlugs, err := i.store.PublishedSlugs(ctx)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "ingest", "keyword", "load published slugs", err)
	}

	if reason := i.duplicateReason(ctx, cand, recentTitles, publishedSlugs); reason != "" {
		if err := i.insertSkipped(ctx, cand, reason); err != nil {
			return nil, "", err
		}
		return cand, reason, nil
	}
	if err := i.store.InsertCandidate(ctx, cand); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "ingest", "keyword", "insert candidate", err)
	}
	return cand, "", nil
}
