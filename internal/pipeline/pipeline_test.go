package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/dedup"
	"newsmill/internal/generation"
	"newsmill/internal/pipeline"
	"newsmill/internal/services"
	"newsmill/internal/services/videosource"
	"newsmill/internal/services/websearch"
	"newsmill/internal/store"
	"newsmill/internal/testsupport"
)

type fakeLister struct {
	items []videosource.VideoItem
	err   error
}

func (f *fakeLister) ListRecent(context.Context, string, int, int) ([]videosource.VideoItem, error) {
	return f.items, f.err
}

type fakeSearcher struct {
	results []websearch.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]websearch.Result, error) {
	f.calls++
	return f.results, f.err
}

type fakeJudge struct{}

func (fakeJudge) JudgeThemeDuplicate(context.Context, string, []string) (dedup.ThemeJudgment, error) {
	return dedup.ThemeJudgment{}, nil
}

type fakeGenerator struct {
	drafts []generation.Article
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateArticle(context.Context, generation.Source, bool) (generation.Article, error) {
	f.calls++
	if f.err != nil {
		return generation.Article{}, f.err
	}
	if len(f.drafts) == 0 {
		return generation.Article{}, errors.New("no scripted draft")
	}
	draft := f.drafts[0]
	if len(f.drafts) > 1 {
		f.drafts = f.drafts[1:]
	}
	return draft, nil
}

func acceptableArticle(title string) generation.Article {
	return generation.Article{
		Title:   title,
		Summary: strings.Repeat("A thorough look at the launch and what it changes. ", 3),
		Intro:   strings.Repeat("The announcement landed with more substance than usual. ", 6),
		Sections: []generation.Section{
			{Heading: "Details", Body: strings.Repeat("Concrete capability details and context. ", 30)},
			{Heading: "Outlook", Body: strings.Repeat("What to watch next and why it matters. ", 10)},
		},
		Tags:     []string{"ai"},
		Keywords: []string{"follow-up topic worth covering"},
	}
}

func thinArticle(title string) generation.Article {
	a := acceptableArticle(title)
	a.Summary = strings.Repeat("x", 40)
	return a
}

type env struct {
	cfg      *config.Config
	store    *store.Store
	lister   *fakeLister
	searcher *fakeSearcher
	gen      *fakeGenerator
	runner   *pipeline.Runner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Video.APIKey = "video-key"
	cfg.Video.ChannelIDs = []string{"UC-test"}
	cfg.Search.APIKey = "search-key"
	cfg.LLM.APIKey = "llm-key"
	cfg.LLM.Model = "test-model"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	st := testsupport.MustOpenStore(t, cfg)
	e := &env{
		cfg:      cfg,
		store:    st,
		lister:   &fakeLister{},
		searcher: &fakeSearcher{results: []websearch.Result{{Title: "r", URL: "https://example.com", Snippet: "s"}}},
		gen:      &fakeGenerator{},
	}
	e.rebuild()
	return e
}

// rebuild rewires the runner after config changes made by a test.
func (e *env) rebuild() {
	e.runner = pipeline.NewRunner(e.cfg, e.store, pipeline.Deps{
		Videos:    e.lister,
		Searcher:  e.searcher,
		Judge:     fakeJudge{},
		Generator: e.gen,
	})
}

func video(id, title string) videosource.VideoItem {
	return videosource.VideoItem{ID: id, Title: title, Description: "Transcript text.", PublishedAt: time.Now().UTC()}
}

func TestRunPublishesFreshVideo(t *testing.T) {
	e := newEnv(t)
	e.lister.items = []videosource.VideoItem{video("yt-1", "Gemini 3 release explained")}
	e.gen.drafts = []generation.Article{acceptableArticle("Gemini 3 release explained")}

	summary, err := e.runner.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Published != 1 || summary.Collected != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	path := filepath.Join(e.cfg.Paths.SiteDir, "posts", "gemini-3-release-explained.html")
	doc, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("rendered document missing: %v", err)
	}
	if !strings.Contains(string(doc), "Gemini 3 release explained") {
		t.Fatal("document missing article title")
	}

	ctx := context.Background()
	published, err := e.store.SlugPublished(ctx, "gemini-3-release-explained")
	if err != nil || !published {
		t.Fatalf("published index not updated: %v", err)
	}
	cand, err := e.store.GetCandidate(ctx, "vid-yt-1")
	if err != nil || cand == nil {
		t.Fatalf("candidate missing: %v", err)
	}
	if cand.Status != candidate.StatusPublished {
		t.Fatalf("status = %s", cand.Status)
	}
	processed, err := e.store.VideoProcessed(ctx, "yt-1")
	if err != nil || !processed {
		t.Fatalf("published video missing from processed ledger: %v", err)
	}

	// Follow-up keywords surfaced by the generator land in the queue.
	count, err := e.store.CountKeywords(ctx)
	if err != nil || count != 1 {
		t.Fatalf("keyword count = %d (%v)", count, err)
	}
}

func TestRunStopsAtTarget(t *testing.T) {
	e := newEnv(t)
	e.lister.items = []videosource.VideoItem{
		video("yt-1", "First completely distinct topic"),
		video("yt-2", "Second entirely unrelated story"),
	}
	e.gen.drafts = []generation.Article{
		acceptableArticle("First completely distinct topic"),
		acceptableArticle("Second entirely unrelated story"),
	}

	summary, err := e.runner.Run(context.Background(), pipeline.Options{TargetCount: 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Published != 1 {
		t.Fatalf("published = %d, want 1", summary.Published)
	}
	pending, err := e.store.CountPending(context.Background())
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want the second candidate left for the next run", pending)
	}
}

func TestRunExhaustedGenerationFailsCandidate(t *testing.T) {
	e := newEnv(t)
	e.lister.items = []videosource.VideoItem{video("yt-1", "A topic that refuses to grow")}
	e.gen.drafts = []generation.Article{
		thinArticle("A topic that refuses to grow"),
		thinArticle("A topic that refuses to grow"),
	}

	summary, err := e.runner.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed[candidate.FailArticleGeneration] != 1 {
		t.Fatalf("failed counts = %v", summary.Failed)
	}
	if e.gen.calls != generation.MaxAttempts {
		t.Fatalf("generator calls = %d", e.gen.calls)
	}

	cand, err := e.store.GetCandidate(context.Background(), "vid-yt-1")
	if err != nil || cand == nil {
		t.Fatalf("candidate missing: %v", err)
	}
	if cand.Status != candidate.StatusFailed || cand.FailReason != candidate.FailArticleGeneration {
		t.Fatalf("candidate = %+v", cand)
	}
	// Only publication closes the ledger; the failed video stays eligible
	// for a later examination.
	processed, err := e.store.VideoProcessed(context.Background(), "yt-1")
	if err != nil {
		t.Fatalf("VideoProcessed failed: %v", err)
	}
	if processed {
		t.Fatal("failed video must not be in the processed ledger")
	}
}

func TestRunPreflightFailsFast(t *testing.T) {
	e := newEnv(t)
	e.cfg.Video.APIKey = ""

	_, err := e.runner.Run(context.Background(), pipeline.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	stats, statsErr := e.store.CandidateStats(context.Background())
	if statsErr != nil {
		t.Fatalf("CandidateStats failed: %v", statsErr)
	}
	for status, count := range stats {
		if count != 0 {
			t.Fatalf("preflight failure mutated state: %s=%d", status, count)
		}
	}
}

func TestRunKeywordOverrideSkipsIngestion(t *testing.T) {
	e := newEnv(t)
	// No video credentials needed in keyword mode.
	e.cfg.Video.APIKey = ""
	e.cfg.Video.ChannelIDs = nil
	e.gen.drafts = []generation.Article{acceptableArticle("Agentic coding tools overview")}

	summary, err := e.runner.Run(context.Background(), pipeline.Options{Keyword: "agentic coding tools overview"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Published != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Collected != 0 {
		t.Fatal("keyword mode must not ingest")
	}
}

func TestRunSkipsBackloggedIngestion(t *testing.T) {
	e := newEnv(t)
	e.cfg.Pipeline.MaxPending = 1
	e.rebuild()
	ctx := context.Background()
	testsupport.NewCollectedCandidate(t, e.store, "yt-old", "An older pending topic")

	e.lister.items = []videosource.VideoItem{video("yt-new", "A brand new story")}
	e.gen.drafts = []generation.Article{acceptableArticle("An older pending topic")}

	summary, err := e.runner.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.IngestionSkipped {
		t.Fatal("full backlog must skip ingestion")
	}
	if summary.Collected != 0 {
		t.Fatalf("collected = %d", summary.Collected)
	}
	// The pending candidate still gets processed.
	if summary.Published != 1 {
		t.Fatalf("published = %d", summary.Published)
	}
}

func TestRunGenerationTimeTopicRejection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cand := testsupport.NewCollectedCandidate(t, e.store, "yt-1", "Gemini 3 release explained")
	if err := cand.Transition(candidate.StatusResearched); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	cand.ResearchJSON = `[]`
	if err := e.store.UpdateCandidate(ctx, cand); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}
	// The topic was published between research and generation.
	if err := e.store.AddPublishedPost(ctx, store.PublishedPost{Slug: cand.TopicKey, Title: cand.Title}); err != nil {
		t.Fatalf("AddPublishedPost failed: %v", err)
	}

	summary, err := e.runner.Run(ctx, pipeline.Options{Stage: pipeline.StageGenerate})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Skipped[candidate.SkipDuplicateTopic] != 1 {
		t.Fatalf("skip counts = %v", summary.Skipped)
	}
	if e.gen.calls != 0 {
		t.Fatal("generator must not run for a rejected topic")
	}
}

func TestRunRequeuesKeywordOnSearchFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.store.AppendKeyword(ctx, "flaky research topic", "flaky-research-topic"); err != nil {
		t.Fatalf("AppendKeyword failed: %v", err)
	}
	e.searcher.err = errors.New("search upstream down")

	summary, err := e.runner.Run(ctx, pipeline.Options{Stage: pipeline.StageResearch})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Skipped[candidate.SkipResearchError] != 1 {
		t.Fatalf("skip counts = %v", summary.Skipped)
	}
	if summary.Requeued != 1 {
		t.Fatalf("requeued = %d", summary.Requeued)
	}
	entries, err := e.store.ListKeywords(ctx)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Slug != "flaky-research-topic" {
		t.Fatalf("queue = %#v", entries)
	}
}

func TestRunRequeuesKeywordOnGenerationFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.store.AppendKeyword(ctx, "low effort topic", "low-effort-topic"); err != nil {
		t.Fatalf("AppendKeyword failed: %v", err)
	}
	e.gen.drafts = []generation.Article{
		thinArticle("Low effort topic"),
		thinArticle("Low effort topic"),
	}

	summary, err := e.runner.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed[candidate.FailArticleGeneration] != 1 {
		t.Fatalf("failed counts = %v", summary.Failed)
	}
	if e.gen.calls != generation.MaxAttempts {
		t.Fatalf("generator calls = %d", e.gen.calls)
	}
	// The keyword goes back to the front for the next run instead of being
	// silently dropped with its rejected drafts.
	if summary.Requeued != 1 {
		t.Fatalf("requeued = %d", summary.Requeued)
	}
	entries, err := e.store.ListKeywords(ctx)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Slug != "low-effort-topic" {
		t.Fatalf("queue = %#v", entries)
	}

	cand, err := e.store.GetCandidate(ctx, "kw-low-effort-topic")
	if err != nil || cand == nil {
		t.Fatalf("candidate missing: %v", err)
	}
	if cand.Status != candidate.StatusFailed {
		t.Fatalf("status = %s", cand.Status)
	}
}

func TestRunBudgetBoundsSkipStorm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Every candidate researches fine but generates thin drafts forever.
	for _, seed := range []struct{ id, title string }{
		{"yt-1", "First hopeless topic here"},
		{"yt-2", "Second hopeless topic here"},
		{"yt-3", "Third hopeless topic here"},
		{"yt-4", "Fourth hopeless topic here"},
	} {
		testsupport.NewCollectedCandidate(t, e.store, seed.id, seed.title)
	}
	e.gen.drafts = []generation.Article{thinArticle("whatever")}

	summary, err := e.runner.Run(ctx, pipeline.Options{TargetCount: 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.BudgetExhausted {
		t.Fatal("expected the attempt budget to bound the run")
	}
	if summary.Iterations != 3 {
		t.Fatalf("iterations = %d, want 2*target+1 = 3", summary.Iterations)
	}
}
