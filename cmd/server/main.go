package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"filingrag/internal/answer"
	"filingrag/internal/api"
	"filingrag/internal/chunker"
	"filingrag/internal/config"
	"filingrag/internal/index"
	"filingrag/internal/pipeline"
	"filingrag/internal/registry"
	"filingrag/internal/tokenizer"
)

func main() {
	godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		log.Error("registry load failed", "error", err)
		os.Exit(1)
	}

	store, err := index.Open(cfg.DBPath, log)
	if err != nil {
		log.Error("index open failed", "error", err)
		os.Exit(1)
	}

	answers, err := answer.NewClient(ctx, cfg.GeminiAPIKey, cfg.GenerativeName, cfg.EmbeddingName, log)
	if err != nil {
		log.Error("gemini client failed", "error", err)
		os.Exit(1)
	}

	splitter := chunker.New(newTokenizer(log), chunker.Config{
		ChunkSize:    cfg.DefaultChunkSize,
		ChunkOverlap: cfg.DefaultChunkOverlap,
		Strategy:     cfg.ChunkStrategy,
	})

	worker := pipeline.NewWorker(splitter, answers, store, log)
	orch := pipeline.NewOrchestrator(worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, store, answers, reg, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		answers.Close()
		store.Close()
	}()

	log.Info("starting filingrag server", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newTokenizer prefers the real BPE encoding and degrades to the word-count
// estimator when the encoding assets cannot be loaded.
func newTokenizer(log *slog.Logger) tokenizer.Tokenizer {
	tok, err := tokenizer.NewTiktoken()
	if err != nil {
		log.Warn("tiktoken unavailable, using word-count estimator", "error", err)
		return tokenizer.Estimator{}
	}
	return tok
}
