package main

import (
	"context"
	"strings"
	"testing"

	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/store"
)

// seedCandidates inserts fixtures and releases the store lock so the CLI can
// reopen the database.
func seedCandidates(t *testing.T, configPath string, fn func(*store.Store)) {
	t.Helper()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	fn(st)
	if err := st.Close(); err != nil {
		t.Fatalf("store.Close: %v", err)
	}
}

func TestCandidatesListAndShow(t *testing.T) {
	_, configPath := newCLIConfig(t)

	seedCandidates(t, configPath, func(st *store.Store) {
		ctx := context.Background()
		fresh := candidate.New("aaa", "Gemini 3 Release", "transcript")
		if err := st.InsertCandidate(ctx, fresh); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
		skipped := candidate.New("bbb", "Old Topic", "transcript")
		if err := st.InsertCandidate(ctx, skipped); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
		if err := skipped.MarkSkipped(candidate.SkipDuplicateTopic); err != nil {
			t.Fatalf("MarkSkipped: %v", err)
		}
		if err := st.UpdateCandidate(ctx, skipped); err != nil {
			t.Fatalf("UpdateCandidate: %v", err)
		}
	})

	out, _, err := runCLI(t, configPath, "candidates", "list")
	if err != nil {
		t.Fatalf("candidates list: %v", err)
	}
	requireContains(t, out, "Gemini 3 Release")
	requireContains(t, out, candidate.SkipDuplicateTopic)

	out, _, err = runCLI(t, configPath, "candidates", "list", "--status", "collected")
	if err != nil {
		t.Fatalf("candidates list --status: %v", err)
	}
	requireContains(t, out, "Gemini 3 Release")
	if strings.Contains(out, "Old Topic") {
		t.Fatal("status filter leaked skipped candidate")
	}

	out, _, err = runCLI(t, configPath, "candidates", "show", "vid-aaa")
	if err != nil {
		t.Fatalf("candidates show: %v", err)
	}
	requireContains(t, out, "collected")
	requireContains(t, out, "gemini-3-release")
}

func TestCandidatesClearTerminal(t *testing.T) {
	_, configPath := newCLIConfig(t)

	seedCandidates(t, configPath, func(st *store.Store) {
		ctx := context.Background()
		keep := candidate.New("keep1", "Fresh Topic", "transcript")
		if err := st.InsertCandidate(ctx, keep); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
		done := candidate.New("done1", "Finished Topic", "transcript")
		if err := st.InsertCandidate(ctx, done); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
		if err := done.MarkSkipped(candidate.SkipThemeDuplicate); err != nil {
			t.Fatalf("MarkSkipped: %v", err)
		}
		if err := st.UpdateCandidate(ctx, done); err != nil {
			t.Fatalf("UpdateCandidate: %v", err)
		}
	})

	out, _, err := runCLI(t, configPath, "candidates", "clear-terminal")
	if err != nil {
		t.Fatalf("candidates clear-terminal: %v", err)
	}
	requireContains(t, out, "Cleared 1 terminal candidates")

	out, _, err = runCLI(t, configPath, "candidates", "list")
	if err != nil {
		t.Fatalf("candidates list: %v", err)
	}
	requireContains(t, out, "Fresh Topic")
	if strings.Contains(out, "Finished Topic") {
		t.Fatal("terminal candidate survived clear")
	}
}

func TestStatusSummary(t *testing.T) {
	_, configPath := newCLIConfig(t)

	seedCandidates(t, configPath, func(st *store.Store) {
		fresh := candidate.New("ccc", "Robotics Update", "transcript")
		if err := st.InsertCandidate(context.Background(), fresh); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
	})

	out, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "collected")
	requireContains(t, out, "Pending candidates: 1")
	requireContains(t, out, "Queued keywords: 0")
	requireContains(t, out, "Published posts: 0")
}
