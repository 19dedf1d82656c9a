package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/docutag/curator"
	"github.com/docutag/curator/config"
	"github.com/docutag/curator/db"
	"github.com/docutag/curator/ingestlock"
	"github.com/docutag/curator/llm"
	"github.com/docutag/curator/memstore"
	"github.com/docutag/curator/metrics"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/novelty"
	"github.com/docutag/curator/portal"
	"github.com/docutag/curator/scoring"
	"github.com/docutag/curator/storage"
	"github.com/docutag/curator/vectorindex"
)

// itemStore is what both the ingest and read paths need from the store.
type itemStore interface {
	curator.ItemStore
	portal.Store
	Count(ctx context.Context) (int, error)
	CurationContext(ctx context.Context) (models.CurationContext, error)
}

type blobStore interface {
	curator.BlobStore
	portal.BlobReader
}

type vectorIndex interface {
	curator.Indexer
	portal.Querier
}

// app is the wired service.
type app struct {
	db       *db.DB // nil in memory mode
	items    itemStore
	blobs    blobStore
	index    vectorIndex
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	curator  *curator.Curator
	portal   *portal.Portal
	closers  []func() error
}

// buildApp wires every collaborator from cfg. In memory mode the item
// store, blob store and similarity index live in process.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, memory bool) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if memory {
		a.items = memstore.NewItems()
		a.blobs = memstore.NewBlobs()
		a.index = memstore.NewIndex()
		logger.Warn("running with in-memory backends, nothing will persist")
	} else {
		if err := a.openBackends(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}

	var profile curator.ContextProvider = a.items
	if cfg.ProfileFile != "" {
		p, err := config.LoadProfile(cfg.ProfileFile)
		if err != nil {
			return nil, err
		}
		profile = p
		logger.Info("using curation profile file", "path", cfg.ProfileFile)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.APIKey = cfg.LLM.APIKey
	llmCfg.BaseURL = cfg.LLM.BaseURL
	llmCfg.ChatModel = cfg.LLM.ChatModel
	llmCfg.EmbeddingModel = cfg.LLM.EmbeddingModel
	llmCfg.Dimensions = cfg.LLM.EmbeddingDimensions
	model := llm.New(llmCfg)

	var locker curator.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, ingest lock will fall back per request", "addr", cfg.RedisAddr, "error", err)
		}
		locker = ingestlock.New(rdb, ingestlock.DefaultTTL)
	}

	a.curator, err = curator.New(curator.Deps{
		Store:   a.items,
		Blobs:   a.blobs,
		Index:   a.index,
		Fetcher: curator.NewFetcher(cfg.FetchTimeout),
		Scorer:  scoring.New(model, logger),
		Novelty: novelty.New(model, a.index),
		Profile: profile,
		Locker:  locker,
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	a.portal, err = portal.New(a.items, a.blobs, model, a.index, a.metrics, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Database.Host == "" {
		return errors.New("DB_HOST is required unless running in memory mode")
	}
	database, err := db.New(db.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = database
	a.items = database
	a.closers = append(a.closers, database.Close)
	logger.Info("using PostgreSQL database", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Name)

	index := vectorindex.New(database.DB(), cfg.LLM.EmbeddingDimensions)
	if err := index.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize similarity index: %w", err)
	}
	a.index = index

	switch cfg.Storage.Backend {
	case config.StorageS3:
		s3cfg := cfg.Storage.S3
		blobs, err := storage.NewS3Storage(ctx, storage.S3Config{
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		a.blobs = blobs
		logger.Info("using S3 storage", "bucket", s3cfg.Bucket, "endpoint", s3cfg.Endpoint)
	default:
		blobs, err := storage.New(storage.Config{BasePath: cfg.Storage.BasePath})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.blobs = blobs
		logger.Info("using filesystem storage", "path", cfg.Storage.BasePath)
	}
	return nil
}

// watchDBStats refreshes the pool gauges until ctx is done.
func (a *app) watchDBStats(ctx context.Context, interval time.Duration) error {
	if a.db == nil {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		a.metrics.UpdateDBStats(a.db.DB())
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
