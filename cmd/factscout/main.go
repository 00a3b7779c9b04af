package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"factscout/internal/adapter/embedding"
	"factscout/internal/adapter/gateway"
	"factscout/internal/adapter/index"
	"factscout/internal/adapter/llm"
	"factscout/internal/adapter/retrieval"
	"factscout/internal/domain"
	"factscout/internal/infra/config"
	"factscout/internal/infra/logger"
	"factscout/internal/infra/tracer"
	"factscout/internal/usecase"
	"factscout/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	for i, arg := range os.Args[1:] {
		if arg == "--config" && i+2 < len(os.Args) {
			return os.Args[i+2]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("FACTSCOUT_CONFIG"); p != "" {
		return p
	}
	return "./config.yaml"
}

func run() error {
	// 1. Environment and config
	godotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger and tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Event bus
	bus := eventbus.New(log)
	defer bus.Close()

	// 4. Model and embedding backends
	provider, err := llm.Build(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	embedder := embedding.NewOllamaProvider(
		embedding.WithModel(cfg.Embedding.Model),
		embedding.WithBaseURL(cfg.Embedding.BaseURL),
		embedding.WithDimensions(cfg.Embedding.Dimensions),
	)

	// 5. Semantic index
	store, err := index.New(cfg.Index.Path, log)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer store.Close()

	// 6. Browser-backed retrievers
	browser, err := retrieval.NewChromeDPBrowser(cfg.Browser, log)
	if err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer browser.Close()

	wiki := retrieval.NewWikipediaRetriever(browser, "", log)
	social := retrieval.NewTwitterRetriever(browser, "", log)
	limitedWiki := retrieval.NewRateLimitedRetriever(wiki, cfg.Retrieval.RatePerMinute, cfg.Retrieval.Burst)
	limitedSocial := retrieval.NewRateLimitedRetriever(social, cfg.Retrieval.RatePerMinute, cfg.Retrieval.Burst)

	// 7. Core use cases
	budget, err := usecase.NewTokenBudget(cfg.Pipeline.StageTokenBudget)
	if err != nil {
		log.Warn("token budget unavailable, stages run untruncated", "error", err)
		budget = nil
	}

	handler := usecase.NewHandler(usecase.HandlerDeps{
		Provider:  provider,
		Embedder:  embedder,
		Index:     store,
		Extractor: usecase.NewExtractor(),
		Router:    usecase.NewRouter(provider, bus, log),
		Pipeline:  usecase.NewPipeline(provider, budget, bus, log),
		Ingestor: usecase.NewIngestor(provider, embedder, store, usecase.IngestorConfig{
			ChunkSize:    cfg.Pipeline.ChunkSize,
			ChunkOverlap: cfg.Pipeline.ChunkOverlap,
			BatchSize:    cfg.Pipeline.IngestBatchSize,
		}, bus, log),
		Retrievers: []domain.Retriever{limitedWiki, limitedSocial},
		Bus:        bus,
		Logger:     log,
	}, usecase.HandlerConfig{
		TopK:     cfg.Index.TopK,
		MinScore: cfg.Index.MinScore,
	})

	// 8. Gateway
	server := gateway.NewServer(handler, bus, cfg.Gateway.Addr, log)
	server.SetBackendInfo(cfg.LLM.Provider, cfg.Embedding.Model,
		[]string{wiki.Name(), social.Name()})

	log.Info("factscout starting", "addr", cfg.Gateway.Addr)
	return server.Start(ctx)
}
