package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/config"
	dbValkey "github.com/kailas-cloud/querygen/internal/db/valkey"
	"github.com/kailas-cloud/querygen/internal/domain"
	logpkg "github.com/kailas-cloud/querygen/internal/logger"
	"github.com/kailas-cloud/querygen/internal/metrics"
	aggregaterepo "github.com/kailas-cloud/querygen/internal/repository/aggregate"
	keywordsrepo "github.com/kailas-cloud/querygen/internal/repository/keywords"
	"github.com/kailas-cloud/querygen/internal/repository/querycache"
	chiTransport "github.com/kailas-cloud/querygen/internal/transport/chi"
	"github.com/kailas-cloud/querygen/internal/transport/ollama"
	openaiGen "github.com/kailas-cloud/querygen/internal/transport/openai"
	generateuc "github.com/kailas-cloud/querygen/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/querygen/internal/usecase/health"
	progressuc "github.com/kailas-cloud/querygen/internal/usecase/progress"
	"github.com/kailas-cloud/querygen/internal/version"
)

// runOptions are the run flags. Empty values keep the config file value.
type runOptions struct {
	keywordsPath string
	outputPath   string
	model        string
	provider     string
	statusAddr   string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate queries for every keyword and category not yet done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := loadConfig(root, opts)
			if err != nil {
				return err
			}

			logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runGenerate(cmd.Context(), cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.keywordsPath, "keywords", "", "keyword file (overrides input.keywords_path)")
	f.StringVar(&opts.outputPath, "output", "", "aggregate file (overrides output.path)")
	f.StringVar(&opts.model, "model", "", "generator model (overrides generator.model)")
	f.StringVar(&opts.provider, "provider", "", "generator provider: ollama, openai (overrides generator.provider)")
	f.StringVar(&opts.statusAddr, "status-addr", "", "serve /healthz, /progress and /metrics on this address")
	return cmd
}

// apply copies non-empty flags over cfg.
func (o *runOptions) apply(cfg *config.Config) {
	if o.keywordsPath != "" {
		cfg.Input.KeywordsPath = o.keywordsPath
	}
	if o.outputPath != "" {
		cfg.Output.Path = o.outputPath
	}
	if o.model != "" {
		cfg.Generator.Model = o.model
	}
	if o.provider != "" && o.provider != cfg.Generator.Provider {
		cfg.Generator.Provider = o.provider
		// The ollama default endpoint does not serve the chat API.
		if cfg.Generator.BaseURL == config.DefaultOllamaBaseURL {
			cfg.Generator.BaseURL = ""
		}
		cfg.ApplyDefaults()
	}
	if o.statusAddr != "" {
		cfg.Status.Addr = o.statusAddr
	}
}

// runGenerate is the composition root of a generation run.
func runGenerate(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting querygen",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("provider", cfg.Generator.Provider),
		zap.String("model", cfg.Generator.Model),
		zap.String("keywords", cfg.Input.KeywordsPath),
		zap.String("output", cfg.Output.Path),
	)

	keywords, err := keywordsrepo.Read(cfg.Input.KeywordsPath)
	if err != nil {
		logger.Error("Failed to read keywords", zap.String("path", cfg.Input.KeywordsPath), zap.Error(err))
		return fmt.Errorf("read keywords: %w", err)
	}
	logger.Info("Loaded keywords", zap.Int("count", len(keywords)))

	// Register metrics explicitly (no init())
	metrics.Register()

	gen := generateuc.NewInstrumentedGenerator(
		buildGenerator(cfg.Generator, logger), cfg.Generator.Provider, logger,
	)
	store := aggregaterepo.New(cfg.Output.Path, cfg.Generator.Model, logger)
	tracker := progressuc.NewTracker()

	svc := generateuc.New(gen, store, cfg.Generator.Model, logger).WithProgress(tracker)

	// Pass nil interface (not typed nil pointer!) when the cache is off.
	var cachePinger healthuc.CachePinger
	if cfg.Cache.Enabled() {
		kv, err := connectCache(ctx, cfg.Cache, logger)
		if err != nil {
			logger.Warn("Query cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer kv.Close()
			ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
			svc.WithCache(querycache.New(kv, ttl, metrics.QueryCacheTotal, logger))
			cachePinger = kv
		}
	}

	if cfg.Status.Addr != "" {
		stop, err := startStatusServer(cfg.Status, healthuc.New(gen, cachePinger), tracker, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	sum, err := svc.Run(ctx, keywords)
	logger.Info("Run finished",
		zap.String("run_id", sum.RunID),
		zap.Int("generated", sum.Generated),
		zap.Int("cached", sum.Cached),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int("completed_keywords", sum.Progress.CompletedKeywords),
		zap.Int("total_keywords", sum.Progress.TotalKeywords),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Run interrupted, progress is saved", zap.String("path", store.Path()))
		} else {
			logger.Error("Run aborted", zap.Error(err))
		}
		return err
	}

	logger.Info("All done", zap.String("path", store.Path()))
	return nil
}

// buildGenerator picks the generator client for cfg.Provider.
func buildGenerator(cfg config.GeneratorConfig, logger *zap.Logger) domain.Generator {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	if cfg.Provider == config.ProviderOpenAI {
		return openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			HTTPClient: &http.Client{Timeout: timeout},
			Logger:     logger,
		})
	}

	return ollama.NewClient(&ollama.Config{
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
		Logger:  logger,
	})
}

// connectCache opens the Valkey store and waits until it answers PING.
func connectCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*dbValkey.Store, error) {
	kv, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	if err := kv.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		kv.Close()
		return nil, err
	}

	logger.Info("Connected to query cache", zap.Strings("addrs", cfg.Addrs))
	return kv, nil
}

// startStatusServer serves the status routes until the returned stop func is called.
func startStatusServer(
	cfg config.StatusConfig,
	health *healthuc.Service,
	progress chiTransport.ProgressReader,
	logger *zap.Logger,
) (func(), error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           chiTransport.NewServer(health, progress, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting status server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server error", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during status server shutdown", zap.Error(err))
		}
		logger.Info("Status server stopped")
	}, nil
}
