package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filingrag/internal/chunker"
	"filingrag/internal/filing"
)

// Embedder produces one vector per input text.
type Embedder interface {
	EmbedChunks(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer persists a document's chunks and vectors.
type Indexer interface {
	IndexDocument(ctx context.Context, filename string, chunks []filing.Chunk, embeddings [][]float32) error
}

// Worker processes one job: chunk, embed, and index every HTML filing in
// the job directory.
type Worker struct {
	splitter *chunker.Splitter
	embedder Embedder
	store    Indexer
	log      *slog.Logger
}

func NewWorker(splitter *chunker.Splitter, embedder Embedder, store Indexer, log *slog.Logger) *Worker {
	return &Worker{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		log:      log.With("component", "worker"),
	}
}

// Process runs the full pipeline for a job. Per-file failures are recorded
// on the job and skipped; the job fails outright only when no file succeeds.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "dir", job.Dir)

	files, err := listFilings(job.Dir)
	if err != nil {
		log.Error("list filings failed", "error", err)
		job.FileFailed(err.Error())
		job.SetStatus(StatusFailed, "listing")
		return
	}
	if len(files) == 0 {
		log.Warn("no HTML filings in directory")
		job.FileFailed("no HTML filings found in " + job.Dir)
		job.SetStatus(StatusFailed, "listing")
		return
	}

	job.SetTotalFiles(len(files))
	job.SetStatus(StatusProcessing, "processing")

	for _, path := range files {
		if ctx.Err() != nil {
			job.FileFailed(ctx.Err().Error())
			break
		}
		chunks, err := w.processFile(ctx, path)
		if err != nil {
			log.Error("filing failed", "file", filepath.Base(path), "error", err)
			job.FileFailed(fmt.Sprintf("%s: %s", filepath.Base(path), err))
			continue
		}
		job.FileDone(chunks)
		log.Info("filing indexed", "file", filepath.Base(path), "chunks", chunks)
	}

	snap := job.Snapshot()
	switch {
	case snap.Progress.FilesProcessed == 0:
		job.SetStatus(StatusFailed, "done")
	case snap.Progress.FilesFailed > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

// processFile chunks, embeds, and indexes one filing, returning the chunk
// count. The filing either lands in the index completely or not at all.
func (w *Worker) processFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}

	filename := filepath.Base(path)
	chunks, err := w.splitter.Process(string(data), filename)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no extractable content")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := w.embedder.EmbedChunks(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	if err := w.store.IndexDocument(ctx, filename, chunks, embeddings); err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}
	return len(chunks), nil
}

// listFilings returns the HTML files in dir, sorted for deterministic order.
func listFilings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".htm", ".html":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
