// Package main is the entrypoint for the docextract API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/docextract/internal/analyzer"
	"github.com/kiranshivaraju/docextract/internal/api"
	"github.com/kiranshivaraju/docextract/internal/api/handler"
	"github.com/kiranshivaraju/docextract/internal/api/response"
	"github.com/kiranshivaraju/docextract/internal/cache"
	"github.com/kiranshivaraju/docextract/internal/config"
	"github.com/kiranshivaraju/docextract/internal/jobs"
	"github.com/kiranshivaraju/docextract/pkg/models"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)
	slog.Info("config loaded", "analyzer", cfg.Analyzer.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create document analyzer
	docAnalyzer, err := analyzer.NewAnalyzer(cfg.Analyzer)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}
	slog.Info("analyzer initialized", "analyzer", docAnalyzer.Name())

	// 3. Optional Redis result cache
	var resultCache cache.Cache
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected", "cache_ttl", cfg.Redis.CacheTTL.String())

		resultCache = redisCache
		docAnalyzer = analyzer.NewCachedAnalyzer(docAnalyzer, redisCache, cfg.Redis.CacheTTL)
	}

	// 4. Job store, runner and retention
	store := jobs.NewMemoryStore()
	runner := jobs.NewRunner(store, docAnalyzer, jobs.RunnerConfig{
		MaxConcurrent: int64(cfg.Jobs.MaxConcurrent),
		Timeout:       cfg.Analyzer.Timeout,
		IncludeText:   cfg.Jobs.IncludeText,
	}, logger)
	janitor := jobs.NewJanitor(store, cfg.Jobs.Retention, cfg.Jobs.SweepInterval, logger)

	// 5. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		CORSOrigins:   cfg.Server.CORSOrigins,
		MaxBodyBytes:  cfg.Server.MaxUploadBytes + handler.MultipartOverhead,
		HealthHandler: healthHandler(store, docAnalyzer, resultCache),
		SubmitHandler: handler.NewSubmitHandler(runner, cfg.Server.MaxUploadBytes),
		StatusHandler: handler.NewStatusHandler(store),
	})

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return janitor.Run(gCtx)
	})

	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown with timeout
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := runner.Wait(shutdownCtx); err != nil {
			slog.Warn("in-flight jobs abandoned at shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// lenner reports how many jobs are tracked.
type lenner interface {
	Len() int
}

// healthHandler reports analyzer, job count and cache connectivity.
// c is nil when caching is disabled.
func healthHandler(s lenner, a models.DocumentAnalyzer, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cacheStatus := "disabled"
		if c != nil {
			cacheStatus = "ok"
			if err := c.Ping(r.Context()); err != nil {
				cacheStatus = "degraded"
			}
		}

		status, code := "ok", http.StatusOK
		if cacheStatus == "degraded" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		response.JSON(w, code, map[string]any{
			"status":   status,
			"analyzer": a.Name(),
			"jobs":     s.Len(),
			"cache":    cacheStatus,
		})
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
