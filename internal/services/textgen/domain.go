package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"newsmill/internal/dedup"
	"newsmill/internal/generation"
)

// JudgeThemeDuplicate asks the model whether a candidate title covers the
// same theme as any recently published title. Implements dedup.Judge.
func (c *Client) JudgeThemeDuplicate(ctx context.Context, title string, recentTitles []string) (dedup.ThemeJudgment, error) {
	var empty dedup.ThemeJudgment
	title = strings.TrimSpace(title)
	if title == "" {
		return empty, errors.New("textgen judge: title required")
	}
	if len(recentTitles) == 0 {
		return empty, errors.New("textgen judge: recent titles required")
	}

	input, err := json.Marshal(struct {
		Candidate string   `json:"candidate_title"`
		Recent    []string `json:"recent_titles"`
	}{Candidate: title, Recent: recentTitles})
	if err != nil {
		return empty, fmt.Errorf("textgen judge: encode input: %w", err)
	}

	content, err := c.CompleteJSON(ctx, themeJudgePrompt, string(input))
	if err != nil {
		return empty, err
	}
	var judgment dedup.ThemeJudgment
	if err := DecodeJSON(content, &judgment); err != nil {
		return empty, fmt.Errorf("textgen judge: parse payload: %w", err)
	}
	judgment.MatchedTitle = strings.TrimSpace(judgment.MatchedTitle)
	judgment.Reason = strings.TrimSpace(judgment.Reason)
	return judgment, nil
}

// GenerateArticle drafts one article from the supplied source material.
// Implements generation.Generator.
func (c *Client) GenerateArticle(ctx context.Context, src generation.Source, expand bool) (generation.Article, error) {
	var empty generation.Article
	if strings.TrimSpace(src.Topic) == "" {
		return empty, errors.New("textgen article: topic required")
	}

	input, err := json.Marshal(struct {
		Topic      string          `json:"topic"`
		Transcript string          `json:"transcript,omitempty"`
		Research   json.RawMessage `json:"research,omitempty"`
	}{
		Topic:      src.Topic,
		Transcript: src.Transcript,
		Research:   rawOrNil(src.ResearchJSON),
	})
	if err != nil {
		return empty, fmt.Errorf("textgen article: encode input: %w", err)
	}

	system := articlePrompt
	if expand {
		system += "\n\n" + articleExpandHint
	}
	content, err := c.CompleteJSON(ctx, system, string(input))
	if err != nil {
		return empty, err
	}
	var article generation.Article
	if err := DecodeJSON(content, &article); err != nil {
		return empty, fmt.Errorf("textgen article: parse payload: %w", err)
	}
	return article, nil
}

func rawOrNil(payload string) json.RawMessage {
	payload = strings.TrimSpace(payload)
	if payload == "" || !json.Valid([]byte(payload)) {
		return nil
	}
	return json.RawMessage(payload)
}
