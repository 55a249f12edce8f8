package candidate_test

import (
	"testing"

	"newsmill/internal/candidate"
)

func TestForwardOnlyTransitions(t *testing.T) {
	legal := []struct {
		from, to candidate.Status
	}{
		{candidate.StatusCollected, candidate.StatusResearched},
		{candidate.StatusCollected, candidate.StatusSkipped},
		{candidate.StatusResearched, candidate.StatusGenerated},
		{candidate.StatusResearched, candidate.StatusSkipped},
		{candidate.StatusGenerated, candidate.StatusPublished},
		{candidate.StatusGenerated, candidate.StatusFailed},
	}
	for _, tc := range legal {
		if !candidate.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	// No terminal state may re-enter the pipeline.
	terminals := []candidate.Status{candidate.StatusPublished, candidate.StatusSkipped, candidate.StatusFailed}
	for _, from := range terminals {
		for _, to := range candidate.AllStatuses() {
			if candidate.CanTransition(from, to) {
				t.Fatalf("terminal %s must not transition to %s", from, to)
			}
		}
	}

	if candidate.CanTransition(candidate.StatusResearched, candidate.StatusCollected) {
		t.Fatal("backward transition researched -> collected must be illegal")
	}
	if candidate.CanTransition(candidate.StatusCollected, candidate.StatusGenerated) {
		t.Fatal("stage-skipping transition collected -> generated must be illegal")
	}
}

func TestTransitionStampsTimestamps(t *testing.T) {
	c := candidate.New("yt-abc123", "Gemini 3 release", "description")
	if c.Status != candidate.StatusCollected {
		t.Fatalf("new candidate status = %s, want collected", c.Status)
	}
	if c.ID != "vid-yt-abc123" {
		t.Fatalf("unexpected candidate id %q", c.ID)
	}
	if c.TopicKey != "gemini-3-release" {
		t.Fatalf("unexpected topic key %q", c.TopicKey)
	}

	if err := c.Transition(candidate.StatusResearched); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if c.ResearchedAt == nil {
		t.Fatal("expected ResearchedAt to be stamped")
	}
	if err := c.Transition(candidate.StatusGenerated); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if c.GeneratedAt == nil {
		t.Fatal("expected GeneratedAt to be stamped")
	}
	if err := c.Transition(candidate.StatusPublished); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if c.Active() {
		t.Fatal("published candidate must not be active")
	}
	if err := c.Transition(candidate.StatusResearched); err == nil {
		t.Fatal("expected transition out of published to fail")
	}
}

func TestMarkSkippedAndFailed(t *testing.T) {
	c := candidate.New("yt-1", "Some topic", "")
	if err := c.MarkSkipped(candidate.SkipVideoIDDuplicate); err != nil {
		t.Fatalf("MarkSkipped failed: %v", err)
	}
	if c.SkipReason != candidate.SkipVideoIDDuplicate {
		t.Fatalf("skip reason = %q", c.SkipReason)
	}

	f := candidate.New("yt-2", "Another topic", "")
	if err := f.Transition(candidate.StatusResearched); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := f.Transition(candidate.StatusGenerated); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := f.MarkFailed(candidate.FailArticleGeneration); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if f.FailReason != candidate.FailArticleGeneration {
		t.Fatalf("fail reason = %q", f.FailReason)
	}

	// Failing straight from collected is illegal; failure is a generation exit.
	g := candidate.New("yt-3", "Third topic", "")
	if err := g.MarkFailed(candidate.FailArticleGeneration); err == nil {
		t.Fatal("expected MarkFailed from collected to be rejected")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := candidate.ParseStatus(" Published "); !ok || status != candidate.StatusPublished {
		t.Fatalf("ParseStatus returned %q, %v", status, ok)
	}
	if _, ok := candidate.ParseStatus("archived"); ok {
		t.Fatal("unknown status must not parse")
	}
}

func TestFromKeyword(t *testing.T) {
	c := candidate.FromKeyword("Gemini 3 Pro benchmarks")
	if c.ID != "kw-gemini-3-pro-benchmarks" {
		t.Fatalf("unexpected keyword candidate id %q", c.ID)
	}
	if c.SourceVideoID != "" {
		t.Fatal("keyword candidates carry no source video id")
	}
	if c.QuerySource != "keyword" {
		t.Fatalf("unexpected query source %q", c.QuerySource)
	}
}
