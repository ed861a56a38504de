// Package main runs a one-shot backfill pass: it re-resolves missing
// detection lines for live matches and looks up missing final scores for
// finished ones, then exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"linewatch/internal/config"
	"linewatch/internal/feed"
	"linewatch/internal/resolver"
	"linewatch/internal/storage/migrations"
	pgstore "linewatch/internal/storage/postgres"
	"linewatch/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[backfill] ", log.LstdFlags)

	if cfg.FeedBaseURL == "" {
		logger.Fatal("FEED_BASE_URL is required")
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	targets, err := cfg.Targets()
	if err != nil {
		logger.Fatalf("Invalid target overrides: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Run migrations: %v", err)
	}

	feedClient := feed.NewHTTPClient(cfg.FeedBaseURL, cfg.FeedAPIKey,
		feed.WithTimeout(cfg.FeedTimeout),
	)
	matches := pgstore.NewMatchStore(pool)
	history := pgstore.NewHistoryStore(pool)

	backfiller := tracker.NewBackfiller(tracker.BackfillerOptions{
		Feed:       feedClient,
		Resolver:   resolver.New(resolver.Options{Feed: feedClient, CacheTTL: cfg.LineCacheTTL, Logger: logger}),
		MatchStore: matches,
		History:    history,
		Targets:    targets,
		Logger:     logger,
	})

	result, err := backfiller.Run(ctx)
	if err != nil {
		logger.Fatalf("Backfill failed: %v", err)
	}

	logger.Printf("Detections: %d filled of %d candidates", result.DetectionFilled, result.DetectionCandidates)
	logger.Printf("Outcomes:   %d filled of %d candidates", result.OutcomeFilled, result.OutcomeCandidates)
	if result.Errors > 0 {
		logger.Printf("Completed with %d errors", result.Errors)
		os.Exit(1)
	}
}
