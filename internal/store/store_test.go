package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsmill/internal/candidate"
	"newsmill/internal/store"
	"newsmill/internal/testsupport"
)

func TestOpenEnforcesSingleWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Open(cfg); err == nil {
		t.Fatal("expected second Open on same data dir to fail while lock is held")
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	second, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen after release failed: %v", err)
	}
	second.Close()
}

func TestCandidateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	c := testsupport.NewCollectedCandidate(t, st, "yt-abc123", "Gemini 3 release")
	fetched, err := st.GetCandidate(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if fetched == nil || fetched.SourceVideoID != "yt-abc123" {
		t.Fatalf("unexpected candidate: %#v", fetched)
	}
	if fetched.Status != candidate.StatusCollected {
		t.Fatalf("status = %s", fetched.Status)
	}

	if err := fetched.Transition(candidate.StatusResearched); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	fetched.ResearchJSON = `[{"title":"result"}]`
	if err := st.UpdateCandidate(ctx, fetched); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}

	again, err := st.GetCandidate(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if again.Status != candidate.StatusResearched || again.ResearchedAt == nil {
		t.Fatalf("transition not persisted: %#v", again)
	}
	if again.ResearchJSON == "" {
		t.Fatal("research payload not persisted")
	}
}

func TestInsertRejectsDuplicateActiveSourceVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewCollectedCandidate(t, st, "yt-dup", "First sighting")

	clone := candidate.New("yt-dup", "Second sighting", "")
	clone.ID = "vid-yt-dup-2"
	if err := st.InsertCandidate(ctx, clone); err == nil {
		t.Fatal("expected second active candidate for same video to be rejected")
	}

	// Once the first goes terminal, a new active reference is allowed.
	first, err := st.GetCandidate(ctx, "vid-yt-dup")
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if err := first.MarkSkipped(candidate.SkipTranscriptUnavailable); err != nil {
		t.Fatalf("MarkSkipped failed: %v", err)
	}
	if err := st.UpdateCandidate(ctx, first); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}
	if err := st.InsertCandidate(ctx, clone); err != nil {
		t.Fatalf("expected insert after terminal state, got %v", err)
	}
}

func TestNextCandidateReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	older := candidate.New("yt-old", "Old topic", "")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	older.UpdatedAt = older.CreatedAt
	if err := st.InsertCandidate(ctx, older); err != nil {
		t.Fatalf("InsertCandidate failed: %v", err)
	}
	testsupport.NewCollectedCandidate(t, st, "yt-new", "New topic")

	next, err := st.NextCandidate(ctx, candidate.StatusCollected)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}
	if next == nil || next.ID != older.ID {
		t.Fatalf("expected oldest candidate, got %#v", next)
	}
}

func TestProcessedVideoLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	processed, err := st.VideoProcessed(ctx, "yt-abc123")
	if err != nil {
		t.Fatalf("VideoProcessed failed: %v", err)
	}
	if processed {
		t.Fatal("fresh ledger must be empty")
	}

	if err := st.MarkVideoProcessed(ctx, "yt-abc123", "Gemini 3 release"); err != nil {
		t.Fatalf("MarkVideoProcessed failed: %v", err)
	}
	// Idempotent re-mark.
	if err := st.MarkVideoProcessed(ctx, "yt-abc123", "Gemini 3 release"); err != nil {
		t.Fatalf("re-mark failed: %v", err)
	}

	processed, err = st.VideoProcessed(ctx, "yt-abc123")
	if err != nil {
		t.Fatalf("VideoProcessed failed: %v", err)
	}
	if !processed {
		t.Fatal("expected ledger hit")
	}
}

func TestTopicHistoryUpsertPreservesFirstSeen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if err := st.RecordTopicPublished(ctx, "gemini-3-release", first); err != nil {
		t.Fatalf("RecordTopicPublished failed: %v", err)
	}
	second := first.Add(48 * time.Hour)
	if err := st.RecordTopicPublished(ctx, "gemini-3-release", second); err != nil {
		t.Fatalf("RecordTopicPublished failed: %v", err)
	}

	entry, err := st.TopicHistory(ctx, "gemini-3-release")
	if err != nil {
		t.Fatalf("TopicHistory failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected topic entry")
	}
	if !entry.FirstSeen.Equal(first) {
		t.Fatalf("first seen advanced: %v", entry.FirstSeen)
	}
	if !entry.LastPublishedAt.Equal(second) {
		t.Fatalf("last published not advanced: %v", entry.LastPublishedAt)
	}
}

func TestPublishedPostIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		post := store.PublishedPost{
			Slug:  fmt.Sprintf("post-%d", i),
			Title: fmt.Sprintf("Post %d", i),
			Tags:  []string{"ai", "news"},
		}
		if err := st.AddPublishedPost(ctx, post); err != nil {
			t.Fatalf("AddPublishedPost failed: %v", err)
		}
	}

	slugs, err := st.PublishedSlugs(ctx)
	if err != nil {
		t.Fatalf("PublishedSlugs failed: %v", err)
	}
	if len(slugs) != 3 || slugs[0] != "post-0" {
		t.Fatalf("unexpected slugs: %v", slugs)
	}

	titles, err := st.RecentPublishedTitles(ctx, 2)
	if err != nil {
		t.Fatalf("RecentPublishedTitles failed: %v", err)
	}
	if len(titles) != 2 || titles[0] != "Post 2" {
		t.Fatalf("unexpected recent titles: %v", titles)
	}

	published, err := st.SlugPublished(ctx, "post-1")
	if err != nil {
		t.Fatalf("SlugPublished failed: %v", err)
	}
	if !published {
		t.Fatal("expected slug hit")
	}

	posts, err := st.PublishedPosts(ctx)
	if err != nil {
		t.Fatalf("PublishedPosts failed: %v", err)
	}
	if len(posts) != 3 || len(posts[0].Tags) != 2 {
		t.Fatalf("unexpected posts: %#v", posts)
	}
}

func TestKeywordQueueOrderingAndTrim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := st.AppendKeyword(ctx, fmt.Sprintf("keyword %d", i), fmt.Sprintf("keyword-%d", i)); err != nil {
			t.Fatalf("AppendKeyword failed: %v", err)
		}
	}
	if err := st.PrependKeyword(ctx, "urgent retry", "urgent-retry"); err != nil {
		t.Fatalf("PrependKeyword failed: %v", err)
	}

	entries, err := st.ListKeywords(ctx)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if len(entries) != 5 || entries[0].Slug != "urgent-retry" {
		t.Fatalf("unexpected queue order: %#v", entries)
	}

	queued, err := st.KeywordSlugQueued(ctx, "keyword-2")
	if err != nil {
		t.Fatalf("KeywordSlugQueued failed: %v", err)
	}
	if !queued {
		t.Fatal("expected queued slug hit")
	}

	// Trim keeps the most recently inserted entries.
	dropped, err := st.TrimKeywords(ctx, 2)
	if err != nil {
		t.Fatalf("TrimKeywords failed: %v", err)
	}
	if dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", dropped)
	}
	remaining, err := st.ListKeywords(ctx)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
}

func TestCountPendingAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewCollectedCandidate(t, st, "yt-1", "Topic one")
	b := testsupport.NewCollectedCandidate(t, st, "yt-2", "Topic two")
	if err := b.Transition(candidate.StatusResearched); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := st.UpdateCandidate(ctx, b); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}
	if err := a.MarkSkipped(candidate.SkipThemeDuplicate); err != nil {
		t.Fatalf("MarkSkipped failed: %v", err)
	}
	if err := st.UpdateCandidate(ctx, a); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}

	pending, err := st.CountPending(ctx)
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	stats, err := st.CandidateStats(ctx)
	if err != nil {
		t.Fatalf("CandidateStats failed: %v", err)
	}
	if stats[candidate.StatusSkipped] != 1 || stats[candidate.StatusResearched] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
