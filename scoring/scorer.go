// Package scoring asks a language model to summarize, tag and rate a
// document, validating whatever comes back.
package scoring

import (
	"context"
	"log/slog"

	"github.com/docutag/curator/llm"
	"github.com/docutag/curator/models"
)

// Generator produces free text from a role-tagged conversation.
type Generator interface {
	Generate(ctx context.Context, msgs []llm.Message) (string, error)
}

// Scorer rates documents for personal and organizational relevance.
type Scorer struct {
	gen    Generator
	logger *slog.Logger
}

// New creates a Scorer. A nil logger uses slog.Default().
func New(gen Generator, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{gen: gen, logger: logger}
}

// Score always returns a usable result. The boolean reports whether the
// model's answer was used rather than the fallback.
func (s *Scorer) Score(ctx context.Context, ic models.IngestContext, cc models.CurationContext) (models.ScoringResult, bool) {
	response, err := s.gen.Generate(ctx, BuildMessages(ic, cc))
	if err != nil {
		s.logger.Warn("scoring model call failed, using fallback", "id", ic.ID, "error", err)
		return Fallback(ic), false
	}

	res, ok := Parse(response, ic)
	if !ok {
		s.logger.Warn("scoring response had no usable JSON object, using fallback", "id", ic.ID)
	}
	return res, ok
}
