package websearch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsmill/internal/services"
	"newsmill/internal/services/websearch"
)

const searchFixture = `{
  "web": {
    "results": [
      {"title": "Gemini 3 release notes", "url": "https://example.com/a", "description": "Official notes."},
      {"title": "No link entry", "url": "", "description": "dropped"},
      {"title": "Analysis", "url": "https://example.com/b", "description": "Third-party take."},
      {"title": "Extra", "url": "https://example.com/c", "description": "beyond the cap"}
    ]
  }
}`

func TestSearch(t *testing.T) {
	var gotQuery, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.Header.Get("X-Subscription-Token")
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	client := websearch.NewClient(websearch.Config{APIKey: "test-key", BaseURL: server.URL})
	results, err := client.Search(context.Background(), "gemini 3 release", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "gemini 3 release" || gotToken != "test-key" {
		t.Fatalf("query = %q, token = %q", gotQuery, gotToken)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].URL != "https://example.com/a" || results[1].URL != "https://example.com/b" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := websearch.NewClient(websearch.Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Search(context.Background(), "anything", 5)
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
}

func TestSearchRequiresAPIKey(t *testing.T) {
	client := websearch.NewClient(websearch.Config{})
	if _, err := client.Search(context.Background(), "anything", 5); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEncodeResults(t *testing.T) {
	encoded, err := websearch.EncodeResults([]websearch.Result{{Title: "t", URL: "https://example.com", Snippet: "s"}})
	if err != nil {
		t.Fatalf("EncodeResults failed: %v", err)
	}
	if encoded == "" || encoded[0] != '[' {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}
