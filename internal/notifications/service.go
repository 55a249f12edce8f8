package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsmill/internal/config"
)

const userAgent = "newsmill/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, target int) error
	NotifyPostPublished(ctx context.Context, title, slug string) error
	NotifyRunCompleted(ctx context.Context, published, skipped, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		runSummaries: cfg.Notifications.RunSummaries,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	runSummaries bool
	errors       bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, target int) error {
	if !n.runSummaries {
		return nil
	}
	data := payload{
		title:   "Newsmill - Run Started",
		message: fmt.Sprintf("Pipeline run started, targeting %d post(s)", target),
		tags:    []string{"newsmill", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPostPublished(ctx context.Context, title, slug string) error {
	if !n.runSummaries {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Newsmill - Published",
		message: fmt.Sprintf("Published: %s (%s)", title, strings.TrimSpace(slug)),
		tags:    []string{"newsmill", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, published, skipped, failed int, duration time.Duration) error {
	if !n.runSummaries {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title string
	if failed == 0 {
		title = "Newsmill - Run Complete"
	} else {
		title = "Newsmill - Run Complete (with errors)"
	}
	data := payload{
		title: title,
		message: fmt.Sprintf("Run complete in %s: %d published, %d skipped, %d failed",
			duration, published, skipped, failed),
		tags: []string{"newsmill", "run", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Newsmill - Error",
		message:  builder.String(),
		tags:     []string{"newsmill", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Newsmill - Test",
		message:  "Notification system test",
		tags:     []string{"newsmill", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int) error               { return nil }
func (noopService) NotifyPostPublished(context.Context, string, string) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
