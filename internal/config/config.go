package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Gemini
	GeminiAPIKey   string
	GenerativeName string
	EmbeddingName  string

	// Storage
	DBPath       string
	RegistryPath string
	FilingsDir   string

	// EDGAR
	EdgarUserAgent string

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int
	ChunkStrategy       string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		APIKey: os.Getenv("FILINGRAG_API_KEY"),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GenerativeName: envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		EmbeddingName:  envOr("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),

		DBPath:       envOr("FILINGRAG_DB", "filings.db"),
		RegistryPath: envOr("COMPANIES_FILE", "companies.yaml"),
		FilingsDir:   envOr("FILINGS_DIR", "sec_filings"),

		EdgarUserAgent: envOr("SEC_USER_AGENT", "filingrag research contact@example.com"),

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 1000),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 200),
		ChunkStrategy:       envOr("CHUNK_STRATEGY", "structure"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1000
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 200
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings the server cannot run without. The CLI's
// scrape path works without any of these.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("FILINGRAG_API_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
