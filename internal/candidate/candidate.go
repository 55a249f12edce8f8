package candidate

import (
	"fmt"
	"strings"
	"time"

	"newsmill/internal/textutil"
)

// Status represents the lifecycle of a topic candidate.
type Status string

const (
	StatusCollected  Status = "collected"
	StatusResearched Status = "researched"
	StatusGenerated  Status = "generated"
	StatusPublished  Status = "published"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Skip reasons recorded on candidates that exit through StatusSkipped.
const (
	SkipVideoIDDuplicate      = "video-id-duplicate"
	SkipThemeDuplicate        = "theme-duplicate"
	SkipTranscriptUnavailable = "transcript-unavailable"
	SkipDuplicateTopic        = "duplicate-topic"
	SkipBacklogOverflow       = "backlog-overflow"
	SkipResearchError         = "research-error"
)

// FailArticleGeneration is the reason recorded when generation attempts are exhausted.
const FailArticleGeneration = "article-generation-error"

var allStatuses = []Status{
	StatusCollected,
	StatusResearched,
	StatusGenerated,
	StatusPublished,
	StatusSkipped,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the closed set of legal status edges. Terminal states have
// no entries, so illegal re-entry is unrepresentable.
var transitions = map[Status][]Status{
	StatusCollected:  {StatusResearched, StatusSkipped},
	StatusResearched: {StatusGenerated, StatusSkipped},
	StatusGenerated:  {StatusPublished, StatusFailed},
}

var activeStatuses = []Status{StatusCollected, StatusResearched, StatusGenerated}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ActiveStatuses returns the non-terminal statuses.
func ActiveStatuses() []Status {
	cp := make([]Status, len(activeStatuses))
	copy(cp, activeStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusPublished, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Candidate is one discovered topic under consideration for publication.
type Candidate struct {
	ID            string
	SourceVideoID string
	Title         string
	Description   string
	TopicKey      string
	SearchQuery   string
	QuerySource   string
	Transcript    string
	ResearchJSON  string
	ArticleJSON   string
	Status        Status
	SkipReason    string
	FailReason    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResearchedAt  *time.Time
	GeneratedAt   *time.Time
}

// New builds a collected candidate from a source video. The identifier is
// derived from the source video id so rediscovery of the same video maps to
// the same candidate identity.
func New(sourceVideoID, title, description string) *Candidate {
	now := time.Now().UTC()
	return &Candidate{
		ID:            fmt.Sprintf("vid-%s", strings.TrimSpace(sourceVideoID)),
		SourceVideoID: strings.TrimSpace(sourceVideoID),
		Title:         strings.TrimSpace(title),
		Description:   description,
		TopicKey:      textutil.Slugify(title),
		SearchQuery:   strings.TrimSpace(title),
		QuerySource:   "title",
		Status:        StatusCollected,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// FromKeyword builds a collected candidate for keyword-mode runs, where no
// source video backs the topic.
func FromKeyword(keyword string) *Candidate {
	now := time.Now().UTC()
	slug := textutil.Slugify(keyword)
	return &Candidate{
		ID:          fmt.Sprintf("kw-%s", slug),
		Title:       strings.TrimSpace(keyword),
		TopicKey:    slug,
		SearchQuery: strings.TrimSpace(keyword),
		QuerySource: "keyword",
		Status:      StatusCollected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Active reports whether the candidate is in a non-terminal state.
func (c *Candidate) Active() bool {
	return !c.Status.Terminal()
}

// Transition moves the candidate to the next status, stamping stage
// timestamps on the way. Illegal edges are rejected.
func (c *Candidate) Transition(to Status) error {
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("illegal candidate transition %s -> %s", c.Status, to)
	}
	now := time.Now().UTC()
	switch to {
	case StatusResearched:
		c.ResearchedAt = &now
	case StatusGenerated:
		c.GeneratedAt = &now
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}

// MarkSkipped transitions the candidate to skipped with a reason code.
func (c *Candidate) MarkSkipped(reason string) error {
	if err := c.Transition(StatusSkipped); err != nil {
		return err
	}
	c.SkipReason = reason
	return nil
}

// MarkFailed transitions the candidate to failed with a reason code.
func (c *Candidate) MarkFailed(reason string) error {
	if err := c.Transition(StatusFailed); err != nil {
		return err
	}
	c.FailReason = reason
	return nil
}
