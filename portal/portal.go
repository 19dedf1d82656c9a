// Package portal serves the read side of the curated item set: ranked
// views, item detail, stored content and semantic retrieval.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docutag/curator/metrics"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
	"github.com/docutag/curator/storage"
)

const (
	DefaultSimilarTopK = 20
	MaxSimilarTopK     = 100
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50

	queryCacheSize = 256
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Store is the item store as seen by the read path.
type Store interface {
	pagination.Source
	GetByID(ctx context.Context, id string) (*models.Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Item, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	UpdatePin(ctx context.Context, id string, pin int) error
}

// BlobReader reads stored item content.
type BlobReader interface {
	GetContent(ctx context.Context, key string) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier finds the nearest indexed vectors.
type Querier interface {
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
}

// Hit is an item returned by semantic retrieval with its similarity.
type Hit struct {
	models.Item
	Similarity float64 `json:"similarity"`
}

// Portal answers read requests and the two narrow item updates.
type Portal struct {
	store    Store
	blobs    BlobReader
	embedder Embedder
	index    Querier
	queries  *lru.Cache[string, []float32]
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Portal. m and logger may be nil.
func New(store Store, blobs BlobReader, embedder Embedder, index Querier, m *metrics.Metrics, logger *slog.Logger) (*Portal, error) {
	cache, err := lru.New[string, []float32](queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Portal{
		store:    store,
		blobs:    blobs,
		embedder: embedder,
		index:    index,
		queries:  cache,
		metrics:  m,
		logger:   logger,
	}, nil
}

// List returns one page of a ranked view.
func (p *Portal) List(ctx context.Context, req pagination.Request) (pagination.Page, error) {
	view := req.View
	if view == "" {
		view = pagination.ViewBrowse
	}
	p.metrics.ListRequest(string(view))
	return pagination.List(ctx, p.store, req)
}

// Get returns the item with id.
func (p *Portal) Get(ctx context.Context, id string) (*models.Item, error) {
	return p.store.GetByID(ctx, id)
}

// Document is the stored text of an item.
type Document struct {
	ID    string
	Title string
	Text  string
}

// Content returns the extracted text stored for id.
func (p *Portal) Content(ctx context.Context, id string) (*Document, error) {
	item, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := p.blobs.GetContent(ctx, item.ContentPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: content of %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return &Document{ID: item.ID, Title: item.Title, Text: text}, nil
}

// Similar returns active items semantically close to id, most similar first.
// Zero topK uses DefaultSimilarTopK.
func (p *Portal) Similar(ctx context.Context, id string, topK int) ([]Hit, error) {
	topK = clamp(topK, DefaultSimilarTopK, MaxSimilarTopK)

	item, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	text := item.SummaryLong
	if strings.TrimSpace(text) == "" {
		text = item.Title
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed item: %w", err)
	}
	// One extra match makes room for the item itself.
	matches, err := p.index.Query(ctx, vec, topK+1)
	if err != nil {
		return nil, fmt.Errorf("failed to query similarity index: %w", err)
	}

	filtered := matches[:0]
	for _, m := range matches {
		if m.ID != id {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return p.hits(ctx, filtered)
}

// Search embeds q and returns the closest visible items. Zero limit uses
// DefaultSearchLimit.
func (p *Portal) Search(ctx context.Context, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	limit = clamp(limit, DefaultSearchLimit, MaxSearchLimit)
	p.metrics.SearchRequest()

	vec, err := p.embedQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	matches, err := p.index.Query(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similarity index: %w", err)
	}
	return p.hits(ctx, matches)
}

func (p *Portal) embedQuery(ctx context.Context, q string) ([]float32, error) {
	if vec, ok := p.queries.Get(q); ok {
		p.metrics.EmbedCache(true)
		return vec, nil
	}
	p.metrics.EmbedCache(false)

	vec, err := p.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	p.queries.Add(q, vec)
	return vec, nil
}

// hits loads the matched items, keeps the active ones and orders them by
// similarity.
func (p *Portal) hits(ctx context.Context, matches []models.Match) ([]Hit, error) {
	out := []Hit{}
	if len(matches) == 0 {
		return out, nil
	}

	ids := make([]string, len(matches))
	score := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		score[m.ID] = m.Score
	}

	items, err := p.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched items: %w", err)
	}
	for _, it := range items {
		if it.Status != models.StatusActive {
			continue
		}
		out = append(out, Hit{Item: it, Similarity: score[it.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SetStatus overwrites the lifecycle status of id and returns the item.
func (p *Portal) SetStatus(ctx context.Context, id, status string) (*models.Item, error) {
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := p.store.UpdateStatus(ctx, id, st); err != nil {
		return nil, err
	}
	p.logger.Info("item status updated", "id", id, "status", st)
	return p.store.GetByID(ctx, id)
}

// SetPin overwrites the pin flag of id and returns the item.
func (p *Portal) SetPin(ctx context.Context, id string, pin int) (*models.Item, error) {
	if err := models.ValidatePin(pin); err != nil {
		return nil, err
	}
	if err := p.store.UpdatePin(ctx, id, pin); err != nil {
		return nil, err
	}
	p.logger.Info("item pin updated", "id", id, "pin", pin)
	return p.store.GetByID(ctx, id)
}

func clamp(n, def, hi int) int {
	if n < 1 {
		return def
	}
	if n > hi {
		return hi
	}
	return n
}
