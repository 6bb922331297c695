package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/corpusflower/corpusflower/internal/cache"
	"github.com/corpusflower/corpusflower/internal/concordance"
	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/internal/embedding"
	"github.com/corpusflower/corpusflower/internal/embedding/googleEmbedding"
	"github.com/corpusflower/corpusflower/internal/embedding/openaiEmbedding"
	"github.com/corpusflower/corpusflower/internal/extract"
	"github.com/corpusflower/corpusflower/internal/graph"
	"github.com/corpusflower/corpusflower/internal/handlers"
	"github.com/corpusflower/corpusflower/internal/ingest"
	"github.com/corpusflower/corpusflower/internal/manifest"
	"github.com/corpusflower/corpusflower/internal/ocr"
	"github.com/corpusflower/corpusflower/internal/retrieval"
	"github.com/corpusflower/corpusflower/internal/server"
	"github.com/corpusflower/corpusflower/internal/store"
	"github.com/corpusflower/corpusflower/internal/summarize"
	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/internal/vectorstore/qdrantDB"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

func main() {
	// A missing .env is fine; the environment itself may be populated.
	_ = godotenv.Load()
	logger_i.Init()
	logger := logger_i.NewLogger("main")

	flag.Usage = usage
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "ingest":
		err = runIngest(ctx, cfg)
	case "serve", "":
		err = runServe(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: corpusflower <command>

Commands:
  ingest   index new and changed documents from the source directory
  serve    start the HTTP query API (default)
`)
}

func runIngest(ctx context.Context, cfg config.Config) error {
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	vectors, err := newVectorStore(cfg)
	if err != nil {
		return err
	}
	provider, err := newEmbeddingProvider(ctx, cfg)
	if err != nil {
		return err
	}
	summarizer, err := newSummarizer(ctx, cfg)
	if err != nil {
		return err
	}

	// OCR is optional; scanned pages just keep their (empty) native
	// text when no Vision credentials are configured.
	logger := logger_i.NewLogger("main")
	var ocrBackend extract.OCR
	if visionClient, err := ocr.NewVisionClient(ctx); err != nil {
		logger.Warn("OCR disabled", "error", err)
	} else {
		ocrBackend = visionClient
		defer visionClient.Close()
	}

	pipeline := ingest.NewPipeline(ingest.Deps{
		SourceDir:   cfg.SourceDir,
		DataDir:     cfg.DataDir,
		Dimensions:  cfg.EmbeddingDimensions,
		Extractor:   extract.New(ocrBackend),
		Batcher:     embedding.NewBatcher(provider),
		Vectors:     vectors,
		Graph:       graph.NewStore(db),
		Manifest:    manifest.NewStore(db),
		Concordance: concordance.NewStore(db),
		Summarizer:  summarizer,
	})
	return pipeline.Run(ctx)
}

func runServe(ctx context.Context, cfg config.Config) error {
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	vectors, err := newVectorStore(cfg)
	if err != nil {
		return err
	}
	provider, err := newEmbeddingProvider(ctx, cfg)
	if err != nil {
		return err
	}

	// Redis caching of query embeddings is optional.
	logger := logger_i.NewLogger("main")
	var embCache *cache.EmbeddingCache
	if cfg.RedisAddr != "" {
		embCache, err = cache.NewEmbeddingCache(ctx, cfg.RedisAddr, config.QueryEmbeddingCacheTTL)
		if err != nil {
			logger.Warn("query embedding cache disabled", "error", err)
			embCache = nil
		} else {
			defer embCache.Close()
		}
	}

	retriever := retrieval.NewRetriever(embedding.NewBatcher(provider), vectors, embCache)
	h := handlers.New(retriever, graph.NewStore(db), cfg.NDocs, cfg.NPassages)
	return server.New(cfg.ListenAddr, h).Run()
}

func newVectorStore(cfg config.Config) (vectorstore.Store, error) {
	return qdrantDB.NewStore(qdrantDB.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		UseTLS: cfg.QdrantUseTLS,
	})
}

func newEmbeddingProvider(ctx context.Context, cfg config.Config) (embedding.Provider, error) {
	switch cfg.EmbeddingProvider {
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, errors.New("GOOGLE_API_KEY is required for the google embedding provider")
		}
		return googleEmbedding.NewClient(ctx, cfg.GoogleEmbeddingModel, cfg.GoogleAPIKey, cfg.EmbeddingDimensions)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai embedding provider")
		}
		return openaiEmbedding.NewClient(cfg.OpenAIEmbeddingModel, cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func newSummarizer(ctx context.Context, cfg config.Config) (summarize.Summarizer, error) {
	switch cfg.EmbeddingProvider {
	case "google":
		return summarize.NewGeminiSummarizer(ctx, cfg.GeminiModel, cfg.GoogleAPIKey)
	case "openai":
		return summarize.NewOpenAISummarizer(cfg.OpenAIChatModel, cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.EmbeddingProvider)
	}
}
