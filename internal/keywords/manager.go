// Package keywords manages the FIFO queue of follow-up search terms
// discovered during research. Keywords enter sanitized and slug-deduplicated,
// leave front-first, and the queue is capped so stale discoveries age out.
package keywords

import (
	"context"
	"log/slog"

	"newsmill/internal/logging"
	"newsmill/internal/services"
	"newsmill/internal/store"
	"newsmill/internal/textutil"
)

// Matcher reports whether two slugs name the same topic.
type Matcher interface {
	FuzzySlugDuplicate(a, b string) bool
}

// Store is the persistence surface the manager drives.
type Store interface {
	AppendKeyword(ctx context.Context, keyword, slug string) error
	PrependKeyword(ctx context.Context, keyword, slug string) error
	KeywordSlugQueued(ctx context.Context, slug string) (bool, error)
	ListKeywords(ctx context.Context) ([]store.QueuedKeyword, error)
	RemoveKeywords(ctx context.Context, ids ...int64) error
	TrimKeywords(ctx context.Context, max int) (int64, error)
	PublishedSlugs(ctx context.Context) ([]string, error)
}

// Manager owns queue admission and serving rules.
type Manager struct {
	store   Store
	matcher Matcher
	max     int
	logger  *slog.Logger
}

// NewManager builds a keyword queue manager. max caps the queue size; zero or
// negative disables trimming.
func NewManager(st Store, matcher Matcher, max int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:   st,
		matcher: matcher,
		max:     max,
		logger:  logging.NewComponentLogger(logger, "keywords"),
	}
}

// Enqueue sanitizes and appends raw keywords, skipping entries that collapse
// to nothing, duplicate an already-queued slug, or fuzzily match a published
// slug. It returns how many entries were actually added.
func (m *Manager) Enqueue(ctx context.Context, raw []string) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	published, err := m.store.PublishedSlugs(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "keywords", "enqueue", "load published slugs", err)
	}

	added := 0
	seen := map[string]bool{}
	for _, entry := range raw {
		keyword := textutil.SanitizeKeyword(entry)
		if keyword == "" {
			continue
		}
		slug := textutil.Slugify(keyword)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		queued, err := m.store.KeywordSlugQueued(ctx, slug)
		if err != nil {
			return added, services.Wrap(services.ErrTransient, "keywords", "enqueue", "check queued slug", err)
		}
		if queued {
			continue
		}
		if m.matchesAny(slug, published) {
			m.logger.Debug("keyword matches published topic, skipping",
				logging.String("keyword", keyword),
				logging.String("slug", slug),
			)
			continue
		}
		if err := m.store.AppendKeyword(ctx, keyword, slug); err != nil {
			return added, services.Wrap(services.ErrTransient, "keywords", "enqueue", "append keyword", err)
		}
		added++
	}

	if m.max > 0 {
		dropped, err := m.store.TrimKeywords(ctx, m.max)
		if err != nil {
			return added, services.Wrap(services.ErrTransient, "keywords", "enqueue", "trim queue", err)
		}
		if dropped > 0 {
			m.logger.Info("keyword queue trimmed", logging.Int64("dropped", dropped))
		}
	}
	return added, nil
}

// Consume pops the first queued keyword whose slug does not fuzzily match a
// published topic, removing it along with any later queue entries that name
// the same topic. Entries matching published topics are dropped as they are
// passed over. Returns services.ErrEmptyQueue when nothing is eligible.
func (m *Manager) Consume(ctx context.Context) (string, error) {
	entries, err := m.store.ListKeywords(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "keywords", "consume", "list queue", err)
	}
	if len(entries) == 0 {
		return "", services.ErrEmptyQueue
	}
	published, err := m.store.PublishedSlugs(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "keywords", "consume", "load published slugs", err)
	}

	var remove []int64
	for i, entry := range entries {
		if m.matchesAny(entry.Slug, published) {
			m.logger.Info("dropping queued keyword matching published topic",
				logging.String("keyword", entry.Keyword),
				logging.String("slug", entry.Slug),
			)
			remove = append(remove, entry.ID)
			continue
		}

		// Serve this entry and shed later entries for the same topic so a
		// burst of near-identical discoveries yields one run, not several.
		remove = append(remove, entry.ID)
		for _, later := range entries[i+1:] {
			if later.Slug == entry.Slug || m.fuzzyMatch(entry.Slug, later.Slug) {
				m.logger.Debug("dropping queued duplicate of consumed keyword",
					logging.String("consumed", entry.Slug),
					logging.String("duplicate", later.Slug),
				)
				remove = append(remove, later.ID)
			}
		}
		if err := m.store.RemoveKeywords(ctx, remove...); err != nil {
			return "", services.Wrap(services.ErrTransient, "keywords", "consume", "remove served entries", err)
		}
		return entry.Keyword, nil
	}

	if err := m.store.RemoveKeywords(ctx, remove...); err != nil {
		return "", services.Wrap(services.ErrTransient, "keywords", "consume", "drop stale entries", err)
	}
	return "", services.ErrEmptyQueue
}

// Requeue puts a keyword back at the front of the queue after a recoverable
// failure so the next run retries it first. Already-queued slugs are left
// alone.
func (m *Manager) Requeue(ctx context.Context, keyword string) error {
	keyword = textutil.SanitizeKeyword(keyword)
	if keyword == "" {
		return nil
	}
	slug := textutil.Slugify(keyword)
	queued, err := m.store.KeywordSlugQueued(ctx, slug)
	if err != nil {
		return services.Wrap(services.ErrTransient, "keywords", "requeue", "check queued slug", err)
	}
	if queued {
		return nil
	}
	if err := m.store.PrependKeyword(ctx, keyword, slug); err != nil {
		return services.Wrap(services.ErrTransient, "keywords", "requeue", "prepend keyword", err)
	}
	return nil
}

func (m *Manager) matchesAny(slug string, published []string) bool {
	for _, p := range published {
		if slug == p || m.fuzzyMatch(slug, p) {
			return true
		}
	}
	return false
}

func (m *Manager) fuzzyMatch(a, b string) bool {
	if m.matcher == nil {
		return false
	}
	return m.matcher.FuzzySlugDuplicate(a, b)
}
