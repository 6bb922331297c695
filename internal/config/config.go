package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// Chunker window. Overlap must stay below MaxChunkChars or the
	// sliding window cannot make forward progress.
	MaxChunkChars = 1200
	ChunkOverlap  = 200

	// Conservative inputs-per-request cap for the embeddings endpoint.
	// Independent of token length; with our chunk sizes this stays well
	// under the provider's per-request token ceiling.
	EmbeddingBatchSize = 64

	// Bounded retry for embedding/summarization calls before the error
	// becomes fatal to the run.
	MaxProviderRetries   = 3
	ProviderRetryBackoff = 2 * time.Second

	// A native-extracted page with fewer non-whitespace characters than
	// this is considered empty and handed to OCR.
	MinPageChars = 30

	// Neighbors considered when adding semantic-graph edges for a newly
	// ingested document.
	GraphNeighbors = 6

	// Retrieval defaults, matching the two-hop budget heuristic.
	DefaultNDocs     = 6
	DefaultNPassages = 18

	RateLimitPerSecond      = 2
	BurstRateLimitPerSecond = 5

	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	QdrantConnectionTimeout = 30 * time.Second

	QueryEmbeddingCacheTTL = 24 * time.Hour
)

// Config carries every externally tunable setting. Values come from the
// environment (a .env file is honored when present); clients are built
// once from this struct and passed down explicitly.
type Config struct {
	SourceDir string
	DataDir   string

	ListenAddr string

	QdrantHost   string
	QdrantPort   int
	QdrantUseTLS bool

	EmbeddingProvider    string // "google" or "openai"
	EmbeddingDimensions  int
	GoogleAPIKey         string
	GoogleEmbeddingModel string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIEmbeddingModel string
	OpenAIChatModel      string

	RedisAddr string

	NDocs     int
	NPassages int
}

func Load() Config {
	return Config{
		SourceDir: envString("CORPUSFLOWER_PDF_PATH", "./data/pdfs"),
		DataDir:   envString("CORPUSFLOWER_DATA_PATH", "./data/index"),

		ListenAddr: envString("CORPUSFLOWER_LISTEN_ADDR", ":3000"),

		QdrantHost:   envString("QDRANT_HOST", "127.0.0.1"),
		QdrantPort:   envInt("QDRANT_GRPC_PORT", 6334),
		QdrantUseTLS: envBool("QDRANT_USE_TLS", false),

		EmbeddingProvider:    envString("EMBEDDING_PROVIDER", "openai"),
		EmbeddingDimensions:  envInt("EMBEDDING_DIMENSIONS", 1536),
		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		GoogleEmbeddingModel: envString("GOOGLE_EMBEDDING_MODEL", "gemini-embedding-001"),
		GeminiModel:          envString("GEMINI_MODEL", "gemini-2.5-flash-lite-preview-09-2025"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbeddingModel: envString("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:      envString("OPENAI_MODEL", "gpt-4o-mini"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		NDocs:     envInt("CORPUSFLOWER_N_DOCS", DefaultNDocs),
		NPassages: envInt("CORPUSFLOWER_N_PASSAGES", DefaultNPassages),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
