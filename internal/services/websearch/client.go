// Package websearch fetches research context for a topic from a web search
// API. Results feed the article prompt verbatim; ranking is left upstream.
package websearch

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
	defaultBaseURL     = "https://api.search.brave.com/res/v1/web/search"
	defaultHTTPTimeout = 30 * time.Second
	maxResultCount     = 20
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Config captures the runtime settings for the search API.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client wraps the web search endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a web search client.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
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
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search returns up to n results for the query.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("websearch: query required")
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "websearch", "search", "api key required", nil)
	}
	if n <= 0 || n > maxResultCount {
		n = maxResultCount
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(n)},
	}
	endpoint := c.cfg.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "websearch", "search", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "websearch", "search", "read body", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, services.Wrap(services.ErrQuotaExhausted, "websearch", "search", "rate limited", nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrTransient, "websearch", "search",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "websearch", "search", "decode response", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, raw := range parsed.Web.Results {
		if raw.URL == "" {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(raw.Title),
			URL:     raw.URL,
			Snippet: strings.TrimSpace(raw.Description),
		})
		if len(results) == n {
			break
		}
	}
	return results, nil
}

// EncodeResults serializes results for storage on the candidate record.
func EncodeResults(results []Result) (string, error) {
	encoded, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("websearch: encode results: %w", err)
	}
	return string(encoded), nil
}
