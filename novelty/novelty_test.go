package novelty

import (
	"context"
	"errors"
	"testing"

	"github.com/docutag/curator/models"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }

type fakeIndex struct {
	matches []models.Match
	err     error
	topK    int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]models.Match, error) {
	f.topK = topK
	return f.matches, f.err
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		matches []models.Match
		want    float64
	}{
		{"empty", nil, 1.0},
		{"identical neighbor", []models.Match{{ID: "other", Score: 1.0}}, 0.0},
		{"only self", []models.Match{{ID: "me", Score: 1.0}}, 1.0},
		{"self ignored", []models.Match{{ID: "me", Score: 0.99}, {ID: "a", Score: 0.3}}, 0.7},
		{"max wins", []models.Match{{ID: "a", Score: 0.2}, {ID: "b", Score: 0.6}, {ID: "c", Score: 0.4}}, 0.4},
		{"negative similarity clamps", []models.Match{{ID: "a", Score: -0.5}}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score("me", tt.matches)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	idx := &fakeIndex{matches: []models.Match{{ID: "a", Score: 0.25}}}
	est, err := New(fakeEmbedder{vec: []float32{1, 0}}, idx).Estimate(context.Background(), "me", "text")
	if err != nil {
		t.Fatalf("Estimate error: %v", err)
	}
	if idx.topK != Neighbors {
		t.Errorf("topK = %d, want %d", idx.topK, Neighbors)
	}
	if est.Novelty != 0.75 {
		t.Errorf("Novelty = %v, want 0.75", est.Novelty)
	}
	if len(est.Embedding) != 2 {
		t.Errorf("Embedding length = %d, want 2", len(est.Embedding))
	}
}

func TestEstimateErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(fakeEmbedder{err: boom}, &fakeIndex{}).Estimate(context.Background(), "me", "text")
	if !errors.Is(err, boom) {
		t.Errorf("embed failure error = %v", err)
	}

	_, err = New(fakeEmbedder{vec: []float32{1}}, &fakeIndex{err: boom}).Estimate(context.Background(), "me", "text")
	if !errors.Is(err, boom) {
		t.Errorf("query failure error = %v", err)
	}
}
