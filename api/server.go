// Package api exposes ingestion and the read path over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docutag/curator"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
	"github.com/docutag/curator/portal"
)

// Ingester runs the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, req models.IngestRequest) (*curator.Result, error)
}

// Reader serves the read path and the two item updates.
type Reader interface {
	List(ctx context.Context, req pagination.Request) (pagination.Page, error)
	Get(ctx context.Context, id string) (*models.Item, error)
	Content(ctx context.Context, id string) (*portal.Document, error)
	Similar(ctx context.Context, id string, topK int) ([]portal.Hit, error)
	Search(ctx context.Context, q string, limit int) ([]portal.Hit, error)
	SetStatus(ctx context.Context, id, status string) (*models.Item, error)
	SetPin(ctx context.Context, id string, pin int) (*models.Item, error)
}

// Counter reports the number of stored items for the health check.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Config contains server configuration
type Config struct {
	Addr        string
	APIKey      string // bearer token for mutating routes; empty rejects them
	CORSEnabled bool
	Gatherer    prometheus.Gatherer // nil uses prometheus.DefaultGatherer
	Logger      *slog.Logger
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CORSEnabled: true,
	}
}

// Server is the HTTP front of the curator. Its routes live on an explicit
// mux built by NewServer.
type Server struct {
	ingester    Ingester
	reader      Reader
	counter     Counter
	apiKey      string
	corsEnabled bool
	gatherer    prometheus.Gatherer
	validate    *validator.Validate
	logger      *slog.Logger
	mux         *http.ServeMux
	handler     http.Handler
	server      *http.Server
}

// NewServer creates a new API server
func NewServer(config Config, ingester Ingester, reader Reader, counter Counter) *Server {
	s := &Server{
		ingester:    ingester,
		reader:      reader,
		counter:     counter,
		apiKey:      config.APIKey,
		corsEnabled: config.CORSEnabled,
		gatherer:    config.Gatherer,
		validate:    newValidator(),
		logger:      config.Logger,
		mux:         http.NewServeMux(),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.registerRoutes()
	s.handler = otelhttp.NewHandler(s.middleware(s.mux), "curator-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // ingestion waits on the fetch and the model
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("POST /api/ingest", s.requireAuth(s.handleIngest))
	s.mux.HandleFunc("GET /api/items", s.handleList)
	s.mux.HandleFunc("GET /api/items/{id}", s.handleGet)
	s.mux.HandleFunc("GET /api/items/{id}/content", s.handleContent)
	s.mux.HandleFunc("GET /api/items/{id}/similar", s.handleSimilar)
	s.mux.HandleFunc("PATCH /api/items/{id}/status", s.requireAuth(s.handleSetStatus))
	s.mux.HandleFunc("PATCH /api/items/{id}/pin", s.requireAuth(s.handleSetPin))
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the API server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
