package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docutag/curator/api"
	"github.com/docutag/curator/tracing"
)

const dbStatsInterval = 15 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The service logs to stdout like the rest of the platform.
			c.setLogger(os.Stdout)
			return runServe(cmd.Context(), c, memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "use in-memory backends instead of PostgreSQL and blob storage")
	return cmd
}

func runServe(ctx context.Context, c *cli, memory bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := c.logger
	logger.Info("curator service initializing", "version", version)

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:        c.cfg.Tracing.Enabled,
		ServiceName:    "curator",
		ServiceVersion: version,
		Endpoint:       c.cfg.Tracing.Endpoint,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	a, err := buildApp(ctx, c.cfg, logger, memory)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(api.Config{
		Addr:        ":" + c.cfg.Port,
		APIKey:      c.cfg.APIKey,
		CORSEnabled: c.cfg.CORSEnabled,
		Gatherer:    a.registry,
		Logger:      logger,
	}, a.curator, a.portal, a.items)
	if c.cfg.APIKey == "" {
		logger.Warn("API_KEY not set, mutating routes will reject every request")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.watchDBStats(gCtx, dbStatsInterval)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("error shutting down tracer", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited properly")
	return nil
}
