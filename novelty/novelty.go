// Package novelty rates how different a document is from everything already
// in the similarity index.
package novelty

import (
	"context"
	"fmt"

	"github.com/docutag/curator/models"
)

const (
	// Neighbors is how many nearest matches are compared.
	Neighbors = 5
	// Fallback is used by callers when estimation fails.
	Fallback = 0.5
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier finds the nearest indexed vectors.
type Querier interface {
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
}

// Estimate is the embedding of a document and its novelty.
type Estimate struct {
	Embedding []float32
	Novelty   float64
}

// Estimator computes novelty from embeddings.
type Estimator struct {
	embedder Embedder
	index    Querier
}

// New creates an Estimator.
func New(embedder Embedder, index Querier) *Estimator {
	return &Estimator{embedder: embedder, index: index}
}

// Estimate embeds text and compares it with its nearest neighbors, ignoring
// any match on id itself.
func (e *Estimator) Estimate(ctx context.Context, id, text string) (Estimate, error) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to embed text: %w", err)
	}

	matches, err := e.index.Query(ctx, vec, Neighbors)
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to query similarity index: %w", err)
	}

	return Estimate{Embedding: vec, Novelty: Score(id, matches)}, nil
}

// Score is 1 minus the highest similarity among matches other than id, or 1
// when nothing comparable exists.
func Score(id string, matches []models.Match) float64 {
	found := false
	best := 0.0
	for _, m := range matches {
		if m.ID == id {
			continue
		}
		if !found || m.Score > best {
			best = m.Score
			found = true
		}
	}
	if !found {
		return 1.0
	}
	return models.ClampScore(1.0 - best)
}
