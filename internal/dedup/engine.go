package dedup

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"newsmill/internal/logging"
	"newsmill/internal/store"
	"newsmill/internal/textutil"
)

// Thresholds holds the duplicate-detection tuning knobs. The similarity
// threshold and minimum slug length come from the source pipeline unchanged
// and have not been calibrated against labeled duplicate pairs.
type Thresholds struct {
	Similarity    float64
	MinSlugLength int
	WindowDays    int
}

// ThemeJudgment is the semantic verdict returned by the text-generation service.
type ThemeJudgment struct {
	Duplicate    bool   `json:"duplicate"`
	MatchedTitle string `json:"matched_title"`
	Reason       string `json:"reason"`
}

// Judge performs the semantic theme-duplicate judgment.
type Judge interface {
	JudgeThemeDuplicate(ctx context.Context, title string, recentTitles []string) (ThemeJudgment, error)
}

// Store is the read-only persistence surface the engine consults. The engine
// never writes; the orchestrator owns all persistence.
type Store interface {
	VideoProcessed(ctx context.Context, sourceVideoID string) (bool, error)
	TopicHistory(ctx context.Context, topicKey string) (*store.TopicEntry, error)
	SlugPublished(ctx context.Context, slug string) (bool, error)
}

// Engine applies the ordered duplicate checks.
type Engine struct {
	store      Store
	judge      Judge
	policy     Policy
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine builds a deduplication engine.
func NewEngine(st Store, judge Judge, thresholds Thresholds, policy Policy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:      st,
		judge:      judge,
		policy:     policy,
		thresholds: thresholds,
		logger:     logging.NewComponentLogger(logger, "dedup"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine clock for window tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// VideoSeen reports whether a source video id already appears in the
// processed-video ledger. A hit is an unconditional skip.
func (e *Engine) VideoSeen(ctx context.Context, sourceVideoID string) (bool, error) {
	return e.store.VideoProcessed(ctx, sourceVideoID)
}

// FuzzySlugDuplicate reports whether two slugs are near-identical phrasings.
// Short slugs are excluded to avoid false positives on near-trivial strings.
// A slug extending the other at a word boundary ("x" vs "x-info") also
// counts: it scores below the similarity threshold yet names the same topic.
// Mid-word and mid-slug containment does not count, so "ai-news" inside
// "openai-news-roundup" stays fresh.
func (e *Engine) FuzzySlugDuplicate(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if len([]rune(a)) <= e.thresholds.MinSlugLength || len([]rune(b)) <= e.thresholds.MinSlugLength {
		return false
	}
	if textutil.SlugSimilarity(a, b) > e.thresholds.Similarity {
		return true
	}
	return slugExtends(a, b) || slugExtends(b, a)
}

// slugExtends reports whether long is short plus extra hyphen-separated words
// on either side.
func slugExtends(long, short string) bool {
	return strings.HasPrefix(long, short+"-") || strings.HasSuffix(long, "-"+short)
}

// ThemeDuplicate delegates the semantic judgment to the text-generation
// service. A failed call resolves through the policy table (fail-closed:
// duplicate) rather than risking a redundant publication.
func (e *Engine) ThemeDuplicate(ctx context.Context, title string, recentTitles []string) (Verdict, ThemeJudgment) {
	if e.judge == nil || len(recentTitles) == 0 {
		return VerdictFresh, ThemeJudgment{}
	}
	judgment, err := e.judge.JudgeThemeDuplicate(ctx, title, recentTitles)
	if err != nil {
		e.logger.Warn("theme judgment failed, applying policy",
			logging.String("title", title),
			logging.String("policy_verdict", string(e.policy.OnJudgmentFailure)),
			logging.Error(err),
		)
		return e.policy.OnJudgmentFailure, ThemeJudgment{Reason: "judgment unavailable"}
	}
	if judgment.Duplicate {
		return VerdictDuplicate, judgment
	}
	return VerdictFresh, judgment
}

// TopicRecentlyPublished rejects a topic key that appears in the published
// index or whose history entry falls inside the dedup window. Read failures
// resolve through the policy table.
func (e *Engine) TopicRecentlyPublished(ctx context.Context, topicKey string) Verdict {
	published, err := e.store.SlugPublished(ctx, topicKey)
	if err != nil {
		e.logger.Warn("published-index lookup failed, applying policy",
			logging.String("topic_key", topicKey),
			logging.Error(err),
		)
		return e.policy.OnHistoryReadFailure
	}
	if published {
		return VerdictDuplicate
	}

	entry, err := e.store.TopicHistory(ctx, topicKey)
	if err != nil {
		e.logger.Warn("topic-history lookup failed, applying policy",
			logging.String("topic_key", topicKey),
			logging.Error(err),
		)
		return e.policy.OnHistoryReadFailure
	}
	if entry == nil {
		return VerdictFresh
	}
	window := time.Duration(e.thresholds.WindowDays) * 24 * time.Hour
	if e.now().Sub(entry.LastPublishedAt) < window {
		return VerdictDuplicate
	}
	return VerdictFresh
}
