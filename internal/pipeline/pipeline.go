// Package pipeline drives candidates from ingestion to publication inside a
// bounded run loop. The runner is the only writer of candidate state; every
// collaborator failure degrades to a per-candidate outcome instead of
// aborting the run, except for admission-level configuration errors.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newsmill/internal/admission"
	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/dedup"
	"newsmill/internal/generation"
	"newsmill/internal/ingest"
	"newsmill/internal/keywords"
	"newsmill/internal/logging"
	"newsmill/internal/notifications"
	"newsmill/internal/services"
	"newsmill/internal/services/render"
	"newsmill/internal/services/websearch"
	"newsmill/internal/store"
	"newsmill/internal/textutil"
)

// Stage selects which portion of the pipeline a run executes.
type Stage string

const (
	StageFull     Stage = "full"
	StageIngest   Stage = "ingest"
	StageResearch Stage = "research"
	StageGenerate Stage = "generate"
)

// ParseStage validates a stage-selection override.
func ParseStage(value string) (Stage, error) {
	switch Stage(value) {
	case "", StageFull:
		return StageFull, nil
	case StageIngest, StageResearch, StageGenerate:
		return Stage(value), nil
	default:
		return "", fmt.Errorf("unknown stage %q (expected ingest, research, generate, or full)", value)
	}
}

// Options bound a single run.
type Options struct {
	// Keyword forces a single explicit topic, skipping ingestion and queue
	// consumption.
	Keyword string
	// TargetCount overrides the configured publish target when positive.
	TargetCount int
	// Stage restricts the run to one pipeline stage.
	Stage Stage
}

// Searcher fetches research context for a query.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]websearch.Result, error)
}

// Deps carries the external collaborators; everything else is built from the
// config and store.
type Deps struct {
	Videos    ingest.VideoLister
	Searcher  Searcher
	Judge     dedup.Judge
	Generator generation.Generator
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Runner owns one pipeline run at a time over a single store.
type Runner struct {
	cfg       *config.Config
	store     *store.Store
	engine    *dedup.Engine
	ingestor  *ingest.Ingestor
	keywords  *keywords.Manager
	admission *admission.Controller
	generator *generation.Controller
	searcher  Searcher
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time

	// requeuedThisRun prevents a keyword requeued after a failure from being
	// consumed again in the same run; it is meant for the next one.
	requeuedThisRun map[string]bool
}

// NewRunner wires a runner from configuration, store, and collaborators.
func NewRunner(cfg *config.Config, st *store.Store, deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	engine := dedup.NewEngine(st, deps.Judge, dedup.Thresholds{
		Similarity:    cfg.Dedup.SimilarityThreshold,
		MinSlugLength: cfg.Dedup.MinSlugLength,
		WindowDays:    cfg.Dedup.TopicWindowDays,
	}, dedup.DefaultPolicy(), logger)

	return &Runner{
		cfg:       cfg,
		store:     st,
		engine:    engine,
		ingestor:  ingest.NewIngestor(st, deps.Videos, engine, cfg.Dedup.RecentTitles, logger),
		keywords:  keywords.NewManager(st, engine, cfg.Pipeline.KeywordQueueMax, logger),
		admission: admission.NewController(st, cfg.Pipeline.MaxPending, logger),
		generator: generation.NewController(deps.Generator, logger),
		searcher:  deps.Searcher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one bounded pipeline pass. The loop budget is 2*target+1
// candidate attempts, so a pathological stream of skips cannot spin forever.
// Only admission-level configuration errors are returned; everything else is
// absorbed into the summary.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	start := r.now()
	stage, err := ParseStage(string(opts.Stage))
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", err.Error(), nil)
	}
	target := r.cfg.Pipeline.TargetCount
	if opts.TargetCount > 0 {
		target = opts.TargetCount
	}
	summary := NewSummary(target, stage)
	r.requeuedThisRun = map[string]bool{}

	if err := r.preflight(stage, opts.Keyword); err != nil {
		r.notifyError(ctx, err, "preflight")
		return summary, err
	}
	if err := r.notifier.NotifyRunStarted(ctx, target); err != nil {
		r.logger.Warn("run-started notification failed", logging.Error(err))
	}

	if opts.Keyword != "" {
		r.runKeyword(ctx, opts.Keyword, &summary)
	} else {
		if stage == StageFull || stage == StageIngest {
			r.runIngestion(ctx, &summary)
		}
		if stage != StageIngest {
			r.runLoop(ctx, stage, target, &summary)
		}
	}

	summary.Duration = r.now().Sub(start)
	if err := r.notifier.NotifyRunCompleted(ctx, summary.Published, summary.TotalSkipped(), summary.TotalFailed(), summary.Duration); err != nil {
		r.logger.Warn("run-completed notification failed", logging.Error(err))
	}
	r.logger.Info("run complete",
		logging.Int("published", summary.Published),
		logging.Int("skipped", summary.TotalSkipped()),
		logging.Int("failed", summary.TotalFailed()),
		logging.Int("iterations", summary.Iterations),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// preflight verifies the credentials the selected mode needs. Failures are
// fatal and abort before any state mutation.
func (r *Runner) preflight(stage Stage, keyword string) error {
	missing := func(field string) error {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", field+" is required", nil)
	}
	if keyword == "" && (stage == StageFull || stage == StageIngest) {
		if r.cfg.Video.APIKey == "" {
			return missing("video.api_key")
		}
		if len(r.cfg.Video.ChannelIDs) == 0 {
			return missing("video.channel_ids")
		}
	}
	if stage == StageFull || stage == StageResearch {
		if r.cfg.Search.APIKey == "" {
			return missing("search.api_key")
		}
	}
	if stage == StageFull || stage == StageGenerate {
		if r.cfg.LLM.APIKey == "" {
			return missing("llm.api_key")
		}
		if r.cfg.LLM.Model == "" {
			return missing("llm.model")
		}
	}
	return nil
}

func (r *Runner) runIngestion(ctx context.Context, summary *Summary) {
	admit, pending, err := r.admission.ShouldIngest(ctx)
	if err != nil {
		r.logger.Error("admission check failed, skipping ingestion", logging.Error(err))
		return
	}
	if !admit {
		r.logger.Info("backlog full, skipping ingestion",
			logging.Int("pending", pending),
			logging.Int("max_pending", r.cfg.Pipeline.MaxPending),
		)
		summary.IngestionSkipped = true
		return
	}

	result, err := r.ingestor.Run(ctx, ingest.Options{
		ChannelIDs:   r.cfg.Video.ChannelIDs,
		LookbackDays: r.cfg.Video.LookbackDays,
		PageSize:     r.cfg.Video.PageSize,
	})
	if err != nil {
		r.logger.Error("ingestion failed", logging.Error(err))
		r.notifyError(ctx, err, "ingestion")
		return
	}
	summary.Collected = len(result.Created)
	summary.QuotaChannels = result.QuotaChannels
	for reason, count := range result.SkippedByReason {
		summary.Skipped[reason] += count
	}

	evicted, err := r.admission.EvictOverCap(ctx)
	if err != nil {
		r.logger.Error("backlog eviction failed", logging.Error(err))
		return
	}
	if evicted > 0 {
		summary.Skipped[candidate.SkipBacklogOverflow] += evicted
	}
}

// runLoop drains pending candidates until the publish target is met, the
// attempt budget is spent, or no work remains.
func (r *Runner) runLoop(ctx context.Context, stage Stage, target int, summary *Summary) {
	budget := 2*target + 1
	for summary.Iterations < budget {
		if ctx.Err() != nil {
			return
		}
		if stage != StageResearch && summary.Published >= target {
			return
		}

		cand, fromQueue, err := r.nextCandidate(ctx, stage, summary, budget)
		if err != nil {
			r.logger.Error("candidate selection failed", logging.Error(err))
			return
		}
		if cand == nil {
			r.logger.Info("no work remaining", logging.Int("iterations", summary.Iterations))
			return
		}
		summary.Iterations++
		r.processCandidate(ctx, stage, cand, fromQueue, summary)
		r.pause(ctx)
	}
	summary.BudgetExhausted = true
	r.logger.Warn("attempt budget exhausted",
		logging.Int("budget", budget),
		logging.Int("published", summary.Published),
	)
}

// nextCandidate prefers resuming researched candidates, then oldest collected
// work, then the keyword queue. fromQueue is set when the candidate was
// minted from a consumed keyword, so failures can requeue it.
func (r *Runner) nextCandidate(ctx context.Context, stage Stage, summary *Summary, budget int) (*candidate.Candidate, bool, error) {
	if stage != StageResearch {
		cand, err := r.store.NextCandidate(ctx, candidate.StatusResearched)
		if err != nil {
			return nil, false, err
		}
		if cand != nil {
			return cand, false, nil
		}
	}
	if stage == StageGenerate {
		return nil, false, nil
	}

	cand, err := r.store.NextCandidate(ctx, candidate.StatusCollected)
	if err != nil {
		return nil, false, err
	}
	if cand != nil {
		return cand, false, nil
	}

	// Mint from the keyword queue. Duplicate-at-mint entries burn an
	// iteration so a queue of stale topics still respects the budget.
	for summary.Iterations < budget {
		keyword, err := r.keywords.Consume(ctx)
		if errors.Is(err, services.ErrEmptyQueue) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if r.requeuedThisRun[textutil.Slugify(keyword)] {
			if err := r.keywords.Requeue(ctx, keyword); err != nil {
				r.logger.Warn("keyword restore failed", logging.Error(err))
			}
			return nil, false, nil
		}
		cand, reason, err := r.ingestor.FromKeyword(ctx, keyword)
		if err != nil {
			return nil, false, err
		}
		if reason != "" {
			summary.Iterations++
			summary.Skipped[reason]++
			continue
		}
		return cand, true, nil
	}
	return nil, false, nil
}

func (r *Runner) processCandidate(ctx context.Context, stage Stage, cand *candidate.Candidate, fromQueue bool, summary *Summary) {
	ctx = services.WithCandidateID(ctx, cand.ID)
	log := logging.WithContext(ctx, r.logger).With(
		logging.String("topic_key", cand.TopicKey),
	)

	if cand.Status == candidate.StatusCollected {
		if !r.research(ctx, cand, fromQueue, summary, log) {
			return
		}
		if stage == StageResearch {
			return
		}
		r.pause(ctx)
	}
	r.generateAndPublish(ctx, cand, fromQueue, summary, log)
}

// research runs the web search step and advances the candidate. Returns false
// when the candidate exited the pipeline.
func (r *Runner) research(ctx context.Context, cand *candidate.Candidate, fromQueue bool, summary *Summary, log *slog.Logger) bool {
	results, err := r.searcher.Search(ctx, cand.SearchQuery, r.cfg.Search.ResultCount)
	if err != nil {
		log.Warn("research search failed", logging.Error(err))
		r.skip(ctx, cand, candidate.SkipResearchError, summary, log)
		if fromQueue {
			r.requeue(ctx, cand, summary, log)
		}
		return false
	}
	encoded, err := websearch.EncodeResults(results)
	if err != nil {
		log.Error("research encoding failed", logging.Error(err))
		r.skip(ctx, cand, candidate.SkipResearchError, summary, log)
		return false
	}

	cand.ResearchJSON = encoded
	if err := cand.Transition(candidate.StatusResearched); err != nil {
		log.Error("research transition rejected", logging.Error(err))
		return false
	}
	if err := r.store.UpdateCandidate(ctx, cand); err != nil {
		log.Error("research persist failed", logging.Error(err))
		return false
	}
	log.Info("candidate researched", logging.Int("results", len(results)))
	return true
}

func (r *Runner) generateAndPublish(ctx context.Context, cand *candidate.Candidate, fromQueue bool, summary *Summary, log *slog.Logger) {
	// The topic may have been published since collection; re-check before
	// spending generation budget.
	if r.engine.TopicRecentlyPublished(ctx, cand.TopicKey) == dedup.VerdictDuplicate {
		r.skip(ctx, cand, candidate.SkipDuplicateTopic, summary, log)
		return
	}

	outcome := r.generator.Generate(ctx, generation.Source{
		Topic:        cand.Title,
		Transcript:   cand.Transcript,
		ResearchJSON: cand.ResearchJSON,
	})
	if encoded, err := json.Marshal(outcome.Article); err == nil && outcome.Attempts > 0 {
		cand.ArticleJSON = string(encoded)
	}
	if err := cand.Transition(candidate.StatusGenerated); err != nil {
		log.Error("generation transition rejected", logging.Error(err))
		return
	}
	if err := r.store.UpdateCandidate(ctx, cand); err != nil {
		log.Error("generation persist failed", logging.Error(err))
		return
	}

	if !outcome.Accepted {
		log.Warn("generation attempts exhausted",
			logging.Int("attempts", outcome.Attempts),
			logging.Error(outcome.Err),
		)
		if err := cand.MarkFailed(candidate.FailArticleGeneration); err != nil {
			log.Error("failure transition rejected", logging.Error(err))
			return
		}
		if err := r.store.UpdateCandidate(ctx, cand); err != nil {
			log.Error("failure persist failed", logging.Error(err))
			return
		}
		summary.Failed[candidate.FailArticleGeneration]++
		// A queued keyword gets its topic back for the next run whether the
		// drafts were rejected or the service failed outright.
		if fromQueue {
			r.requeue(ctx, cand, summary, log)
		}
		return
	}

	if err := r.publish(ctx, cand, outcome.Article, log); err != nil {
		log.Error("publication failed", logging.Error(err))
		if markErr := cand.MarkFailed(candidate.FailArticleGeneration); markErr == nil {
			if err := r.store.UpdateCandidate(ctx, cand); err != nil {
				log.Error("failure persist failed", logging.Error(err))
			}
		}
		summary.Failed[candidate.FailArticleGeneration]++
		return
	}
	summary.Published++
	summary.PublishedTitles = append(summary.PublishedTitles, outcome.Article.Title)

	if added, err := r.keywords.Enqueue(ctx, outcome.Article.Keywords); err != nil {
		log.Warn("follow-up keyword enqueue failed", logging.Error(err))
	} else if added > 0 {
		summary.KeywordsEnqueued += added
	}
	if err := r.notifier.NotifyPostPublished(ctx, outcome.Article.Title, cand.TopicKey); err != nil {
		log.Warn("publish notification failed", logging.Error(err))
	}
}

// publish renders the document, writes it under the site directory, and
// records the topic in the published index and history. For video-sourced
// candidates it also writes the processed-video ledger entry.
func (r *Runner) publish(ctx context.Context, cand *candidate.Candidate, article generation.Article, log *slog.Logger) error {
	now := r.now()
	doc, err := render.Document(toRenderArticle(article), render.Meta{
		Slug:        cand.TopicKey,
		SiteBaseURL: r.cfg.Site.BaseURL,
		Author:      r.cfg.Site.Author,
		PublishedAt: now,
		SourceVideo: cand.SourceVideoID,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(r.cfg.Paths.SiteDir, "posts", cand.TopicKey+".html")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	if err := r.store.AddPublishedPost(ctx, store.PublishedPost{
		Slug:          cand.TopicKey,
		Title:         article.Title,
		Tags:          article.Tags,
		SourceVideoID: cand.SourceVideoID,
	}); err != nil {
		return err
	}
	if err := r.store.RecordTopicPublished(ctx, cand.TopicKey, now); err != nil {
		return err
	}
	// The processed-video ledger holds published videos only; skipped and
	// failed candidates leave their source open for a later examination.
	if cand.SourceVideoID != "" {
		if err := r.store.MarkVideoProcessed(ctx, cand.SourceVideoID, article.Title); err != nil {
			return err
		}
	}
	if err := cand.Transition(candidate.StatusPublished); err != nil {
		return err
	}
	if err := r.store.UpdateCandidate(ctx, cand); err != nil {
		return err
	}
	log.Info("candidate published", logging.String("path", path))
	return nil
}

func (r *Runner) runKeyword(ctx context.Context, keyword string, summary *Summary) {
	cand, reason, err := r.ingestor.FromKeyword(ctx, keyword)
	if err != nil {
		r.logger.Error("keyword candidate creation failed", logging.Error(err))
		r.notifyError(ctx, err, "keyword run")
		return
	}
	if reason != "" {
		summary.Skipped[reason]++
		return
	}
	summary.Iterations++
	r.processCandidate(ctx, StageFull, cand, false, summary)
}

func (r *Runner) skip(ctx context.Context, cand *candidate.Candidate, reason string, summary *Summary, log *slog.Logger) {
	if err := cand.MarkSkipped(reason); err != nil {
		log.Error("skip transition rejected", logging.Error(err))
		return
	}
	if err := r.store.UpdateCandidate(ctx, cand); err != nil {
		log.Error("skip persist failed", logging.Error(err))
		return
	}
	summary.Skipped[reason]++
	log.Info("candidate skipped", logging.String(logging.FieldReason, reason))
}

// requeue puts a keyword-sourced candidate's search term back at the front of
// the queue so the next run retries it first.
func (r *Runner) requeue(ctx context.Context, cand *candidate.Candidate, summary *Summary, log *slog.Logger) {
	if err := r.keywords.Requeue(ctx, cand.SearchQuery); err != nil {
		log.Warn("keyword requeue failed", logging.Error(err))
		return
	}
	r.requeuedThisRun[textutil.Slugify(cand.SearchQuery)] = true
	summary.Requeued++
	log.Info("keyword requeued", logging.String("keyword", cand.SearchQuery))
}

func (r *Runner) pause(ctx context.Context) {
	delay := time.Duration(r.cfg.Pipeline.RequestDelayMS) * time.Millisecond
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *Runner) notifyError(ctx context.Context, err error, label string) {
	if notifyErr := r.notifier.NotifyError(ctx, err, label); notifyErr != nil {
		r.logger.Warn("error notification failed", logging.Error(notifyErr))
	}
}

func toRenderArticle(article generation.Article) render.Article {
	out := render.Article{
		Title:   article.Title,
		Summary: article.Summary,
		Intro:   article.Intro,
		Tags:    article.Tags,
	}
	for _, s := range article.Sections {
		out.Sections = append(out.Sections, render.Section{Heading: s.Heading, Body: s.Body})
	}
	return out
}
