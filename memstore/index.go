package memstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/docutag/curator/models"
)

// ErrDimensionMismatch is returned when vectors of different lengths meet.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type entry struct {
	vector   []float32
	metadata map[string]string
}

// Index is a brute-force cosine similarity index.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Upsert stores or replaces the vector of id.
func (x *Index) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[id] = entry{vector: append([]float32(nil), vector...), metadata: metadata}
	return nil
}

// Query returns the topK most similar vectors, best first.
func (x *Index) Query(_ context.Context, vector []float32, topK int) ([]models.Match, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]models.Match, 0, len(x.entries))
	for id, e := range x.entries {
		if len(e.vector) != len(vector) {
			return nil, ErrDimensionMismatch
		}
		matches = append(matches, models.Match{ID: id, Score: cosine(vector, e.vector)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
