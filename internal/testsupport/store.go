package testsupport

import (
	"context"
	"testing"

	"newsmill/internal/candidate"
	"newsmill/internal/config"
	"newsmill/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCollectedCandidate inserts a freshly collected candidate for tests.
func NewCollectedCandidate(t testing.TB, st *store.Store, sourceVideoID, title string) *candidate.Candidate {
	t.Helper()

	c := candidate.New(sourceVideoID, title, "")
	if err := st.InsertCandidate(context.Background(), c); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}
	return c
}
