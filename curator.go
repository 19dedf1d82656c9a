// Package curator ingests URLs into a ranked, deduplicated set of scored
// documents.
package curator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docutag/curator/extract"
	"github.com/docutag/curator/ingestlock"
	"github.com/docutag/curator/metrics"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/novelty"
	"github.com/docutag/curator/storage"
	"github.com/docutag/curator/urlnorm"
)

// Weights of the composite base score.
const (
	PersonalWeight = 0.5
	OrgWeight      = 0.3
	NoveltyWeight  = 0.2
)

const tracerName = "github.com/docutag/curator"

// ItemStore persists items. Insert must reject a second item with the same
// id or URL hash with models.ErrDuplicate.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	GetByURLHash(ctx context.Context, hash string) (*models.Item, error)
}

// BlobStore keeps the extracted text of each item.
type BlobStore interface {
	PutContent(ctx context.Context, key, text string, metadata map[string]string) error
}

// Indexer adds embeddings to the similarity index.
type Indexer interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
}

// Fetcher obtains source documents.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// Scorer rates a document; it never fails.
type Scorer interface {
	Score(ctx context.Context, ic models.IngestContext, cc models.CurationContext) (models.ScoringResult, bool)
}

// NoveltyEstimator embeds a document and rates its novelty.
type NoveltyEstimator interface {
	Estimate(ctx context.Context, id, text string) (novelty.Estimate, error)
}

// ContextProvider supplies the curation vocabulary.
type ContextProvider interface {
	CurationContext(ctx context.Context) (models.CurationContext, error)
}

// Locker guards one canonical URL across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// Deps are the collaborators of a Curator. Locker, Metrics, Logger and Now
// are optional.
type Deps struct {
	Store   ItemStore
	Blobs   BlobStore
	Index   Indexer
	Fetcher Fetcher
	Scorer  Scorer
	Novelty NoveltyEstimator
	Profile ContextProvider
	Locker  Locker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Curator runs the ingestion pipeline.
type Curator struct {
	store   ItemStore
	blobs   BlobStore
	index   Indexer
	fetcher Fetcher
	scorer  Scorer
	novelty NoveltyEstimator
	profile ContextProvider
	locker  Locker
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

// New creates a Curator.
func New(deps Deps) (*Curator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("item store is required")
	case deps.Blobs == nil:
		return nil, errors.New("blob store is required")
	case deps.Index == nil:
		return nil, errors.New("similarity index is required")
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Scorer == nil:
		return nil, errors.New("scorer is required")
	case deps.Novelty == nil:
		return nil, errors.New("novelty estimator is required")
	case deps.Profile == nil:
		return nil, errors.New("curation context provider is required")
	}

	c := &Curator{
		store:   deps.Store,
		blobs:   deps.Blobs,
		index:   deps.Index,
		fetcher: deps.Fetcher,
		scorer:  deps.Scorer,
		novelty: deps.Novelty,
		profile: deps.Profile,
		locker:  deps.Locker,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
		tracer:  otel.Tracer(tracerName),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Result is the outcome of one ingestion. Item is the new record, or the
// existing one when Duplicate is set.
type Result struct {
	Duplicate bool
	Item      *models.Item
}

// Response renders the result as the API answer: a DuplicateResponse or an
// IngestResponse.
func (r *Result) Response() any {
	if r.Duplicate {
		return models.DuplicateResponse{
			ID:        r.Item.ID,
			Duplicate: true,
			Message:   "URL already ingested",
		}
	}
	return models.IngestResponse{
		ID:           r.Item.ID,
		Title:        r.Item.Title,
		SummaryShort: r.Item.SummaryShort,
		BaseScore:    r.Item.BaseScore,
		Status:       r.Item.Status,
	}
}

// BaseScore combines the three component scores.
func BaseScore(personal, org, novelty float64) float64 {
	return models.ClampScore(PersonalWeight*personal + OrgWeight*org + NoveltyWeight*novelty)
}

// Ingest fetches, scores and stores req.URL unless its canonical form is
// already known.
func (c *Curator) Ingest(ctx context.Context, req models.IngestRequest) (res *Result, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "curator.Ingest")
	defer func() {
		outcome := outcomeOf(res, err)
		c.metrics.ObserveIngest(outcome, time.Since(start))
		span.SetAttributes(attribute.String("ingest.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u, err := urlnorm.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", urlnorm.ErrInvalidURL)
	}
	rawURL := strings.TrimSpace(req.URL)
	canonical, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	hash := urlnorm.HashCanonical(canonical)
	span.SetAttributes(attribute.String("item.id", hash))

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = models.DefaultSource
	}

	if c.locker != nil {
		release, err := c.locker.Lock(ctx, hash)
		switch {
		case errors.Is(err, ingestlock.ErrLocked):
			return nil, ErrIngestInProgress
		case err != nil:
			c.metrics.Fallback(metrics.ComponentLock)
			c.logger.Warn("ingest lock unavailable, continuing unguarded", "id", hash, "error", err)
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					c.logger.Warn("failed to release ingest lock", "id", hash, "error", err)
				}
			}()
		}
	}

	existing, err := c.store.GetByURLHash(ctx, hash)
	switch {
	case err == nil:
		c.logger.Info("duplicate URL, skipping ingestion", "id", existing.ID, "url", rawURL)
		return &Result{Duplicate: true, Item: existing}, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	doc, extracted, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC().Truncate(time.Microsecond)
	ic := models.IngestContext{
		ID:          hash,
		URL:         rawURL,
		Title:       extracted.Title,
		CleanText:   extracted.CleanText,
		ContentPath: storage.ContentKey(hash, now),
	}

	err = c.blobs.PutContent(ctx, ic.ContentPath, ic.CleanText, map[string]string{
		"url":          rawURL,
		"source":       source,
		"content-type": doc.ContentType,
		"processed-at": now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store content: %w", err)
	}

	scored := c.score(ctx, ic)
	est := c.estimate(ctx, hash, scored.SummaryLong)

	item := &models.Item{
		ID:            hash,
		Source:        source,
		URL:           rawURL,
		URLHash:       hash,
		Title:         scored.Title,
		SummaryShort:  scored.SummaryShort,
		SummaryLong:   scored.SummaryLong,
		Tags:          scored.Tags,
		PersonalScore: models.ClampScore(scored.PersonalScore),
		OrgScore:      models.ClampScore(scored.OrgScore),
		Novelty:       models.ClampScore(est.Novelty),
		Status:        models.StatusActive,
		Pin:           0,
		ContentPath:   ic.ContentPath,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
	item.BaseScore = BaseScore(item.PersonalScore, item.OrgScore, item.Novelty)
	if item.Tags == nil {
		item.Tags = []string{}
	}

	if err := c.store.Insert(ctx, item); err != nil {
		if !errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("failed to save item: %w", err)
		}
		// A concurrent ingestion of the same canonical URL won the insert.
		winner, gerr := c.store.GetByURLHash(ctx, hash)
		if gerr != nil {
			return nil, fmt.Errorf("failed to load existing item after conflict: %w", gerr)
		}
		c.logger.Info("lost insert race, reporting duplicate", "id", hash)
		return &Result{Duplicate: true, Item: winner}, nil
	}

	if len(est.Embedding) > 0 {
		err := c.index.Upsert(ctx, hash, est.Embedding, map[string]string{
			"source":     source,
			"created_at": now.Format(time.RFC3339Nano),
		})
		if err != nil {
			c.metrics.Fallback(metrics.ComponentIndex)
			c.logger.Warn("failed to index embedding", "id", hash, "error", err)
		}
	}

	c.logger.Info("item ingested",
		"id", hash,
		"url", rawURL,
		"base_score", item.BaseScore,
		"novelty", item.Novelty,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Item: item}, nil
}

func (c *Curator) fetch(ctx context.Context, rawURL string) (*Document, extract.Result, error) {
	ctx, span := c.tracer.Start(ctx, "curator.fetch")
	defer span.End()

	doc, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{URL: rawURL, Err: err}
		}
		return nil, extract.Result{}, err
	}

	res, err := extract.Extract(doc.Body, doc.ContentType, rawURL)
	if err != nil {
		span.RecordError(err)
		return nil, extract.Result{}, &FetchError{URL: rawURL, Err: err}
	}
	span.SetAttributes(
		attribute.String("document.format", res.Format.String()),
		attribute.Int("document.text_length", len(res.CleanText)),
	)
	return doc, res, nil
}

func (c *Curator) score(ctx context.Context, ic models.IngestContext) models.ScoringResult {
	ctx, span := c.tracer.Start(ctx, "curator.score")
	defer span.End()

	cc, err := c.profile.CurationContext(ctx)
	if err != nil {
		c.metrics.Fallback(metrics.ComponentProfile)
		c.logger.Warn("failed to load curation context, scoring without it", "id", ic.ID, "error", err)
		cc = models.CurationContext{}
	}

	res, ok := c.scorer.Score(ctx, ic, cc)
	if !ok {
		c.metrics.Fallback(metrics.ComponentScoring)
	}
	span.SetAttributes(attribute.Bool("scoring.model_used", ok))
	return res
}

func (c *Curator) estimate(ctx context.Context, id, text string) novelty.Estimate {
	ctx, span := c.tracer.Start(ctx, "curator.novelty")
	defer span.End()

	est, err := c.novelty.Estimate(ctx, id, text)
	if err != nil {
		span.RecordError(err)
		c.metrics.Fallback(metrics.ComponentNovelty)
		c.logger.Warn("novelty estimation failed, using fallback", "id", id, "error", err)
		return novelty.Estimate{Novelty: novelty.Fallback}
	}
	return est
}

func outcomeOf(res *Result, err error) string {
	switch {
	case err == nil && res != nil && res.Duplicate:
		return metrics.OutcomeDuplicate
	case err == nil:
		return metrics.OutcomeCreated
	case errors.Is(err, urlnorm.ErrInvalidURL):
		return metrics.OutcomeInvalid
	case IsFetchError(err):
		return metrics.OutcomeFetchError
	case errors.Is(err, ErrIngestInProgress):
		return metrics.OutcomeInProgress
	}
	return metrics.OutcomeError
}
