// Package videosource lists recently published videos from a channel via a
// YouTube-compatible data API. Only metadata is fetched; the pipeline never
// downloads media.
package videosource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsmill/internal/services"
)

const (
	defaultBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultHTTPTimeout = 30 * time.Second
	maxPageSize        = 50
)

// VideoItem is one published video's metadata.
type VideoItem struct {
	ID           string
	Title        string
	Description  string
	PublishedAt  time.Time
	ThumbnailURL string
}

// Config captures the runtime settings for the video API.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client wraps the video data API search endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the lookback reference clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient constructs a video source client.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code   int    `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListRecent returns a channel's videos published within the lookback window,
// newest first, capped at pageSize. A quota-exhausted response maps to
// services.ErrQuotaExhausted so the caller can skip the channel and keep the
// run alive.
func (c *Client) ListRecent(ctx context.Context, channelID string, lookbackDays, pageSize int) ([]VideoItem, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, errors.New("videosource list: channel id required")
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "videosource", "list", "api key required", nil)
	}
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	after := c.now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	params := url.Values{
		"part":           {"snippet"},
		"channelId":      {channelID},
		"type":           {"video"},
		"order":          {"date"},
		"publishedAfter": {after.Format(time.RFC3339)},
		"maxResults":     {strconv.Itoa(pageSize)},
		"key":            {c.cfg.APIKey},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("videosource list: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "videosource", "list", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "videosource", "list", "read body", err)
	}

	var parsed searchResponse
	if len(body) > 0 {
		// Error bodies share the same envelope, so decode before the status check.
		_ = json.Unmarshal(body, &parsed)
	}
	if resp.StatusCode == http.StatusForbidden && quotaExceeded(parsed) {
		return nil, services.Wrap(services.ErrQuotaExhausted, "videosource", "list", "daily quota exceeded for channel "+channelID, nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrTransient, "videosource", "list",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body)), nil)
	}

	items := make([]VideoItem, 0, len(parsed.Items))
	for _, raw := range parsed.Items {
		if raw.ID.VideoID == "" || strings.TrimSpace(raw.Snippet.Title) == "" {
			continue
		}
		item := VideoItem{
			ID:          raw.ID.VideoID,
			Title:       strings.TrimSpace(raw.Snippet.Title),
			Description: strings.TrimSpace(raw.Snippet.Description),
		}
		if ts, err := time.Parse(time.RFC3339, raw.Snippet.PublishedAt); err == nil {
			item.PublishedAt = ts
		}
		if raw.Snippet.Thumbnails.High.URL != "" {
			item.ThumbnailURL = raw.Snippet.Thumbnails.High.URL
		} else {
			item.ThumbnailURL = raw.Snippet.Thumbnails.Default.URL
		}
		items = append(items, item)
	}
	return items, nil
}

func quotaExceeded(parsed searchResponse) bool {
	if parsed.Error == nil {
		return false
	}
	for _, e := range parsed.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(parsed.Error.Message), "quota")
}

func summarizeBody(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
