package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/leadscout/config"
	"github.com/aluiziolira/leadscout/crawl"
	"github.com/aluiziolira/leadscout/parser"
	"github.com/aluiziolira/leadscout/pipeline"
	"github.com/aluiziolira/leadscout/scraper"
)

// runtime holds the process-wide collaborators shared by every run.
type runtime struct {
	metrics      *scraper.Metrics
	pool         *pgxpool.Pool
	orchestrator *crawl.Orchestrator
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{metrics: scraper.NewMetrics()}

	sinks := pipeline.SinkFactory{
		Dir:  cfg.Output.Dir,
		Dual: cfg.Output.Format == "dual",
	}
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pipeline.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		rt.pool = pool
		sinks.Pool = pool
		slog.Info("postgres sink enabled")
	}

	clsOpts := crawl.ClassifierOptions{
		Platforms: parser.NewDomainSet(cfg.Domains.Platforms),
		Filter:    parser.DefaultEmailFilter(),
		CacheSize: cfg.CacheSize,
	}
	if cfg.Email.VerifyMX {
		clsOpts.AcceptEmail = scraper.NewMXVerifier(cfg.Email.Resolvers).HasMX
	}

	open := func(ctx context.Context) (crawl.Session, error) {
		b, err := scraper.NewBrowser(ctx, cfg, rt.metrics)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	rt.orchestrator = crawl.NewOrchestrator(open, sinks, crawl.Options{
		Target:     cfg.Target,
		Classifier: clsOpts,
		Metrics:    rt.metrics,
		Logger:     slog.Default(),
	})
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}
