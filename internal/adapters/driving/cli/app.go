package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docquery/internal/adapters/driven/ai"
	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/services"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/metrics"
	"github.com/custodia-labs/docquery/internal/normalisers"
	"github.com/custodia-labs/docquery/internal/postprocessors"
)

// app is the wired service graph.
type app struct {
	store     driven.IndexStore
	ai        *ai.Services
	metrics   *metrics.Metrics
	ingest    *services.IngestService
	retrieval *services.RetrievalService
	answer    *services.AnswerService
}

// newApp builds every collaborator from cfg.
func newApp(cfg *file.Config) (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.Create(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	pipeline, err := postprocessors.DefaultPipeline(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		aiServices.Close()
		store.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	var prompts driven.PromptStore
	if dir, err := file.DefaultDir(); err == nil {
		if ps, err := file.NewPromptStore(filepath.Join(dir, "prompts")); err == nil {
			prompts = ps
		}
	}

	m := metrics.New()
	embedder := services.NewEmbedder(aiServices.Embedding, services.EmbedderConfig{
		BatchSize:         cfg.Embedding.BatchSize,
		Concurrency:       cfg.Embedding.Concurrency,
		Timeout:           cfg.Embedding.Timeout.Std(),
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Burst:             cfg.Embedding.Burst,
		CacheTTL:          cfg.Embedding.CacheTTL.Std(),
	}, m)

	orchestrator := services.NewOrchestrator(
		store,
		normalisers.DefaultRegistry(),
		pipeline,
		embedder,
		services.OrchestratorConfig{Workers: cfg.Ingest.Workers, MaxRetries: cfg.Embedding.MaxRetries},
		m,
	)

	retrieval := services.NewRetrievalService(
		embedder,
		services.NewRetriever(store),
		services.NewMatcher(store, cfg.Retrieval.BoostFactor),
		services.NewAssembler(cfg.Retrieval.MaxTokens),
		services.RetrievalConfig{
			Limit:         cfg.Retrieval.Limit,
			MinSimilarity: cfg.Retrieval.MinSimilarity,
			MaxTokens:     cfg.Retrieval.MaxTokens,
			PricingLimit:  cfg.Retrieval.PricingLimit,

			PricingFocus:       cfg.Retrieval.PricingFocus,
			PricingSearchBoost: cfg.Retrieval.PricingSearchBoost,
		},
		m,
	)

	answer := services.NewAnswerService(retrieval, aiServices.Completion, prompts, services.AnswerConfig{
		HistoryTurns: cfg.LLM.HistoryTurns,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
	})

	logger.Debug("Services ready: store=%s embedding=%s dims=%d",
		cfg.Storage.Backend, aiServices.Embedding.ModelName(), aiServices.Embedding.Dimensions())

	return &app{
		store:     store,
		ai:        aiServices,
		metrics:   m,
		ingest:    services.NewIngestService(store, orchestrator),
		retrieval: retrieval,
		answer:    answer,
	}, nil
}

// bind publishes the services to the package-level command variables.
func (a *app) bind() {
	appMetrics = a.metrics
	ingestService = a.ingest
	retrievalService = a.retrieval
	answerService = a.answer
	closeServices = a.Close
}

// Close releases the store and AI clients.
func (a *app) Close() {
	a.ai.Close()
	if err := a.store.Close(); err != nil {
		logger.Warn("closing store: %v", err)
	}
}

func openStore(cfg *file.Config) (driven.IndexStore, error) {
	switch cfg.Storage.Backend {
	case domain.StorageMemory:
		return memory.NewIndexStore(), nil
	case domain.StorageSQLite, "":
		dir, err := cfg.DataDir()
		if err != nil {
			return nil, err
		}
		store, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidConfiguration, cfg.Storage.Backend)
}

// serveMetrics exposes m on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background()) //nolint:errcheck
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server: %v", err)
		}
	}()
	logger.Info("Serving metrics on %s/metrics", addr)
}
