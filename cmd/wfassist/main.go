package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/wfassist/internal/config"
	"github.com/kailas-cloud/wfassist/internal/db"
	dbRedis "github.com/kailas-cloud/wfassist/internal/db/redis"
	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/index"
	logpkg "github.com/kailas-cloud/wfassist/internal/logger"
	"github.com/kailas-cloud/wfassist/internal/metrics"
	"github.com/kailas-cloud/wfassist/internal/repository/completioncache"
	"github.com/kailas-cloud/wfassist/internal/repository/corpus"
	chiTransport "github.com/kailas-cloud/wfassist/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/wfassist/internal/transport/openai"
	"github.com/kailas-cloud/wfassist/internal/usecase/check"
	"github.com/kailas-cloud/wfassist/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/wfassist/internal/usecase/health"
	"github.com/kailas-cloud/wfassist/internal/usecase/retrieve"
	"github.com/kailas-cloud/wfassist/internal/version"
	"github.com/kailas-cloud/wfassist/internal/watcher"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("Starting wfassist API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// Register collectors explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	// Optional completion cache store
	var store db.Store
	if cfg.Cache.Enabled {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	// Corpus, index and schema
	repo := corpus.New(cfg.Corpus.ExamplesPath, cfg.Corpus.SchemaPath, cfg.Corpus.UseFallback, logger)
	limits := request.Limits{MaxK: cfg.Retrieval.MaxK, MaxQueryLength: cfg.Retrieval.MaxQueryLength}

	retrieveSvc := retrieve.New(index.NewHolder(), repo, limits, logger)
	if _, err := retrieveSvc.Reload(ctx); err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}
	checkSvc := check.New(repo, logger)
	if err := checkSvc.Reload(ctx); err != nil {
		logger.Fatal("Failed to load schema", zap.Error(err))
	}

	completer := buildCompleter(cfg, store, logger)
	genSvc := generate.New(retrieveSvc, checkSvc, completer, logger)

	// Pass nil interfaces (not typed nil pointers) for absent components.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var llmChecker healthuc.CompletionChecker
	if hc, ok := completer.(domain.HealthChecker); ok {
		llmChecker = hc
	}
	healthSvc := healthuc.New(retrieveSvc, cachePinger, llmChecker)

	server := chiTransport.NewServer(retrieveSvc, checkSvc, genSvc, healthSvc, logger).
		WithDefaultK(cfg.Retrieval.DefaultK).
		WithMaxBodyBytes(int64(cfg.HTTP.MaxBodyBytes))

	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        cfg.Auth.APIKeys,
		RequestTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		GenerateRPS:    cfg.HTTP.GenerateRPS,
		GenerateBurst:  cfg.HTTP.GenerateBurst,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Corpus.Watch {
		w := watcher.New([]string{cfg.Corpus.ExamplesPath, cfg.Corpus.SchemaPath},
			func(ctx context.Context) { reloadCorpus(ctx, retrieveSvc, checkSvc, logger) },
			watcher.WithLogger(logger),
		)
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped gracefully")
}

// reloadCorpus rebuilds the index and schema after a file change. Failures keep
// the previous snapshot serving.
func reloadCorpus(ctx context.Context, r *retrieve.Service, c *check.Service, logger *zap.Logger) {
	stats, err := r.Reload(ctx)
	if err != nil {
		logger.Error("Corpus reload failed, keeping previous index", zap.Error(err))
	} else {
		logger.Info("Corpus reloaded",
			zap.Int("documents", stats.Documents),
			zap.Uint64("generation", stats.Generation),
		)
	}
	if err := c.Reload(ctx); err != nil {
		logger.Error("Schema reload failed, keeping previous schema", zap.Error(err))
	}
}

// buildCompleter assembles the completion chain: OpenAI -> Cached, or the offline placeholder.
func buildCompleter(cfg config.Config, store db.Store, logger *zap.Logger) domain.Completer {
	if cfg.LLM.Provider == "offline" {
		logger.Warn("No completion provider configured, generation runs offline",
			zap.String("note", domain.OfflineNote))
		return domain.NewOfflineCompleter("")
	}

	base := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Provider:    cfg.LLM.Provider,
		Logger:      logger,
	})
	logger.Info("Completer created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	if store == nil {
		return base
	}
	return completioncache.New(base, store, completioncache.Options{
		Prefix:     cfg.Cache.KeyPrefix,
		Model:      cfg.LLM.Model,
		TTL:        cfg.Cache.CacheTTL(),
		CacheTotal: metrics.CompletionCacheTotal,
	}, logger)
}
