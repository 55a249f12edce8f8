package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"newsmill/internal/services"
)

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	NewComponentLogger(logger, "pipeline").Info("run started", Int("target", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO pipeline: run started") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "target=2") {
		t.Fatalf("missing attribute in console line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("publish", String("title", "Gemini 3 release"))

	if !strings.Contains(buf.String(), `title="Gemini 3 release"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsCandidateFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithCandidateID(context.Background(), "vid-abc")
	ctx = services.WithStage(ctx, "research")

	WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "candidate_id=vid-abc") || !strings.Contains(line, "stage=research") {
		t.Fatalf("context fields missing from line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
