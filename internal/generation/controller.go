package generation

import (
	"context"
	"log/slog"

	"newsmill/internal/logging"
	"newsmill/internal/services"
)

// MaxAttempts bounds the generate-validate loop per candidate.
const MaxAttempts = 2

// Source carries everything the generator needs for one candidate.
type Source struct {
	Topic        string
	Transcript   string
	ResearchJSON string
}

// Generator produces one article draft. expand signals that the previous
// draft failed the length checks and the next one should be longer.
type Generator interface {
	GenerateArticle(ctx context.Context, src Source, expand bool) (Article, error)
}

// Outcome is the explicit result of the attempt ladder. Accepted implies
// Article holds a draft that passed validation; otherwise Err carries the
// last failure.
type Outcome struct {
	Article  Article
	Attempts int
	Accepted bool
	Err      error
}

// Controller runs the bounded generate-validate loop.
type Controller struct {
	generator Generator
	logger    *slog.Logger
}

// NewController builds a generation controller.
func NewController(gen Generator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		generator: gen,
		logger:    logging.NewComponentLogger(logger, "generation"),
	}
}

// Generate drives up to MaxAttempts drafts through validation. The expansion
// hint is set only after a validation rejection; a transport failure retries
// with the original prompt.
func (c *Controller) Generate(ctx context.Context, src Source) Outcome {
	outcome := Outcome{}
	expand := false
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		outcome.Attempts = attempt

		article, err := c.generator.GenerateArticle(ctx, src, expand)
		if err != nil {
			outcome.Err = err
			c.logger.Warn("article generation failed",
				logging.String("topic", src.Topic),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			if ctx.Err() != nil {
				return outcome
			}
			continue
		}

		if err := Validate(article); err != nil {
			outcome.Err = err
			expand = true
			c.logger.Warn("article rejected by validation",
				logging.String("topic", src.Topic),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			continue
		}

		outcome.Article = article
		outcome.Accepted = true
		outcome.Err = nil
		return outcome
	}

	if outcome.Err == nil {
		outcome.Err = services.Wrap(services.ErrValidation, "generation", "generate", "attempt budget exhausted", nil)
	}
	return outcome
}
