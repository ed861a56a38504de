// Package main runs the full tracking engine: the poll loop, the
// notification queue, retention enforcement and the HTTP API in one
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linewatch/internal/config"
	"linewatch/internal/feed"
	"linewatch/internal/httpapi"
	"linewatch/internal/notify"
	"linewatch/internal/resolver"
	"linewatch/internal/storage"
	chstore "linewatch/internal/storage/clickhouse"
	"linewatch/internal/storage/memory"
	"linewatch/internal/storage/migrations"
	pgstore "linewatch/internal/storage/postgres"
	"linewatch/internal/tracker"
)

// engineStores holds the storage implementations in use.
type engineStores struct {
	matches storage.MatchStore
	history storage.HistoryStore
	callLog storage.CallLogStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	// Flags override the environment
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	pollInterval := flag.Duration("poll-interval", cfg.PollInterval, "Poll cycle interval")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL")
	autoStart := flag.Bool("auto-start", true, "Start the poll loop immediately")
	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.PollInterval = *pollInterval
	cfg.UseMemory = *useMemory

	logger := log.New(os.Stdout, "[linewatch] ", log.LstdFlags|log.Lshortfile)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	targets, err := cfg.Targets()
	if err != nil {
		logger.Fatalf("Invalid target overrides: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Upstream feed
	feedClient := feed.NewHTTPClient(cfg.FeedBaseURL, cfg.FeedAPIKey,
		feed.WithTimeout(cfg.FeedTimeout),
		feed.WithCallLogger(stores.callLog),
	)
	lineResolver := resolver.New(resolver.Options{
		Feed:     feedClient,
		CacheTTL: cfg.LineCacheTTL,
		Logger:   logger,
	})

	// Notification delivery
	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create notification gateway: %v", err)
	}
	queue := notify.NewQueue(notify.QueueOptions{
		Gateway:    gateway,
		MaxRetries: cfg.NotifyRetries,
		RetryDelay: cfg.NotifyDelay,
		Pace:       cfg.NotifyPace,
		Logger:     logger,
	})

	enforcer := tracker.NewEnforcer(stores.matches, stores.history, cfg.MaxTracked, logger)
	poller := tracker.NewPoller(tracker.PollerOptions{
		Feed:        feedClient,
		Resolver:    lineResolver,
		MatchStore:  stores.matches,
		History:     stores.history,
		Queue:       queue,
		Targets:     targets,
		Enforcer:    enforcer,
		Interval:    cfg.PollInterval,
		Destination: cfg.TelegramChatID,
		Logger:      logger,
	})
	backfiller := tracker.NewBackfiller(tracker.BackfillerOptions{
		Feed:       feedClient,
		Resolver:   lineResolver,
		MatchStore: stores.matches,
		History:    stores.history,
		Targets:    targets,
		Logger:     logger,
	})

	api := httpapi.New(httpapi.Options{
		Poller:      poller,
		Backfiller:  backfiller,
		Query:       tracker.NewQueryService(stores.matches, stores.history, stores.callLog),
		Queue:       queue,
		Destination: cfg.TelegramChatID,
		Logger:      logger,
	})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		poller.Stop()
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	go func() {
		if err := queue.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("Queue error: %v", err)
		}
	}()

	if *autoStart {
		if err := poller.Start(ctx); err != nil {
			logger.Fatalf("Failed to start poller: %v", err)
		}
	} else {
		logger.Println("Poll loop not started; use POST /api/tracker/start")
	}

	if err := api.ListenAndServe(cfg.HTTPAddr); err != nil {
		logger.Fatalf("HTTP server error: %v", err)
	}
}

// createStores builds the storage layer: in-memory for local runs, or
// PostgreSQL for truth plus optional ClickHouse for the call log.
func createStores(ctx context.Context, cfg *config.Config) (*engineStores, func(), error) {
	if cfg.UseMemory {
		stores := &engineStores{
			matches: memory.NewMatchStore(),
			history: memory.NewHistoryStore(),
			callLog: memory.NewCallLogStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &engineStores{
		matches: pgstore.NewMatchStore(pool),
		history: pgstore.NewHistoryStore(pool),
	}

	// The call log degrades to memory when ClickHouse is not configured.
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.callLog = chstore.NewCallLogStore(conn)
		return stores, func() {
			conn.Close()
			pool.Close()
		}, nil
	}

	stores.callLog = memory.NewCallLogStore()
	return stores, pool.Close, nil
}

// buildGateway returns the Telegram gateway, or a log-only gateway when no
// token is configured so local runs still exercise the queue.
func buildGateway(cfg *config.Config, logger *log.Logger) (notify.Gateway, error) {
	if cfg.TelegramToken == "" {
		logger.Println("TELEGRAM_TOKEN not set, notifications are logged only")
		return notify.GatewayFunc(func(_ context.Context, destination, body string) error {
			logger.Printf("Notification to %s: %s", destination, body)
			return nil
		}), nil
	}
	if cfg.TelegramChatID == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return notify.NewTelegramGateway(cfg.TelegramToken)
}
