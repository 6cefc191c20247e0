package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ai"
	"github.com/nyashahama/vitality-blueprint-backend/internal/api"
	"github.com/nyashahama/vitality-blueprint-backend/internal/cache"
	"github.com/nyashahama/vitality-blueprint-backend/internal/config"
	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
	"github.com/nyashahama/vitality-blueprint-backend/internal/email"
	"github.com/nyashahama/vitality-blueprint-backend/internal/rpc"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
	stripeinternal "github.com/nyashahama/vitality-blueprint-backend/internal/stripe"
	"github.com/nyashahama/vitality-blueprint-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Root context cancelled by OS signal. Worker and servers all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Rules ─────────────────────────────────────────────────────────────────
	rules, err := ruleset.Open(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	logger.Info("rules loaded",
		"version", rules.Version,
		"fingerprint", rules.Fingerprint(),
		"questions", len(rules.Questions),
	)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, queries)

	// ── Stripe ────────────────────────────────────────────────────────────────
	stripeClient := stripeinternal.NewClient(cfg.StripeSecretKey)

	// ── Blueprint copy ────────────────────────────────────────────────────────
	writer, closeWriter, err := newWriter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("blueprint writer: %w", err)
	}
	defer closeWriter()

	// ── Email (Resend) ────────────────────────────────────────────────────────
	mailer := email.NewResendClient(
		cfg.ResendAPIKey,
		cfg.EmailFromAddr,
		cfg.EmailFromName,
		cfg.BaseURL,
	)

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(queries, st, writer, mailer, logger)
	runner := worker.NewRunner(job, queries, st, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		queries,
		st,
		rules,
		stripeClient,
		runner, // *Runner satisfies worker.Enqueuer
		mailer,
		api.Config{
			BaseURL:             cfg.BaseURL,
			StripeWebhookSecret: cfg.StripeWebhookSecret,
			PriceCents:          cfg.PriceCents,
			Currency:            cfg.Currency,
			Env:                 cfg.Env,
		},
		logger,
	)

	httpSrv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Listener ──────────────────────────────────────────────────────────────
	// gRPC and HTTP share one port. cmux routes by the HTTP/2 content-type.
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)

	var grpcSrv *grpc.Server
	var grpcLis net.Listener
	if cfg.GRPCEnabled {
		grpcLis = mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
		grpcSrv = rpc.NewServer(rules, logger)
	}
	httpLis := mux.Match(cmux.Any())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runner.Start(gctx)
		return nil
	})

	g.Go(func() error {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error {
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server listening", "addr", lis.Addr().String(), "grpc", cfg.GRPCEnabled)
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("cmux serve: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Give in-flight HTTP requests up to 20 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		err := httpSrv.Shutdown(shutdownCtx)
		mux.Close()
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// newWriter assembles the blueprint copy chain from whichever providers are
// configured, wrapped in the Redis cache when REDIS_URL is set. A nil Writer
// means every blueprint uses the default copy.
func newWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ai.Writer, func(), error) {
	noop := func() {}

	var chain []ai.Writer
	if cfg.DeepSeekAPIKey != "" {
		chain = append(chain, ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel))
	}
	if cfg.AnthropicAPIKey != "" {
		chain = append(chain, ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("gemini: %w", err)
		}
		chain = append(chain, gemini)
	}

	if len(chain) == 0 {
		logger.Info("ai: no providers configured, using default copy")
		return nil, noop, nil
	}
	logger.Info("ai: providers configured", "count", len(chain))

	writer := ai.NewFallbackWriter(logger, chain...)

	if cfg.RedisURL == "" {
		return writer, noop, nil
	}
	rc, err := cache.Open(ctx, cfg.RedisURL, "vb:", cfg.BlueprintCacheTTL)
	if err != nil {
		return nil, noop, fmt.Errorf("redis: %w", err)
	}
	logger.Info("ai: caching copy in redis", "ttl", cfg.BlueprintCacheTTL)

	return ai.NewCachingWriter(writer, rc, logger), func() { _ = rc.Close() }, nil
}

// openDB opens the connection pool and verifies it is reachable.
func openDB(ctx context.Context, dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return pool, db.New(pool), nil
}
