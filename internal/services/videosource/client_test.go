package videosource_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsmill/internal/services"
	"newsmill/internal/services/videosource"
)

const searchFixture = `{
  "items": [
    {
      "id": {"videoId": "yt-abc123"},
      "snippet": {
        "title": "Gemini 3 release explained",
        "description": "What shipped and why it matters.",
        "publishedAt": "2026-08-23T09:00:00Z",
        "thumbnails": {"high": {"url": "https://img.example/high.jpg"}}
      }
    },
    {
      "id": {"videoId": ""},
      "snippet": {"title": "Broadcast entry without a video id"}
    }
  ]
}`

func TestListRecent(t *testing.T) {
	var query map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	client := videosource.NewClient(
		videosource.Config{APIKey: "test-key", BaseURL: server.URL},
		videosource.WithClock(func() time.Time { return now }),
	)

	items, err := client.ListRecent(context.Background(), "UC-channel", 3, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (entries without video ids dropped)", len(items))
	}
	if items[0].ID != "yt-abc123" || items[0].ThumbnailURL != "https://img.example/high.jpg" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if !items[0].PublishedAt.Equal(time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("published at = %v", items[0].PublishedAt)
	}

	if got := query["channelId"]; len(got) != 1 || got[0] != "UC-channel" {
		t.Fatalf("channelId = %v", got)
	}
	wantAfter := now.Add(-3 * 24 * time.Hour).Format(time.RFC3339)
	if got := query["publishedAfter"]; len(got) != 1 || got[0] != wantAfter {
		t.Fatalf("publishedAfter = %v, want %s", got, wantAfter)
	}
	if got := query["maxResults"]; len(got) != 1 || got[0] != "10" {
		t.Fatalf("maxResults = %v", got)
	}
}

func TestListRecentQuotaExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"errors":[{"reason":"quotaExceeded"}],"message":"Daily Limit Exceeded"}}`))
	}))
	defer server.Close()

	client := videosource.NewClient(videosource.Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.ListRecent(context.Background(), "UC-channel", 1, 10)
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
}

func TestListRecentOtherForbiddenIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"errors":[{"reason":"forbidden"}],"message":"API key restricted"}}`))
	}))
	defer server.Close()

	client := videosource.NewClient(videosource.Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.ListRecent(context.Background(), "UC-channel", 1, 10)
	if err == nil || errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("restricted key must not read as quota exhaustion: %v", err)
	}
}

func TestListRecentRequiresAPIKey(t *testing.T) {
	client := videosource.NewClient(videosource.Config{})
	_, err := client.ListRecent(context.Background(), "UC-channel", 1, 10)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
