package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filingrag/internal/chunker"
	"filingrag/internal/filing"
	"filingrag/internal/tokenizer"
)

type fakeEmbedder struct {
	calls int
	fail  map[string]bool // fail when any input text contains the key
}

func (f *fakeEmbedder) EmbedChunks(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		for key := range f.fail {
			if strings.Contains(t, key) {
				return nil, errors.New("embedding backend unavailable")
			}
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeIndexer struct {
	indexed map[string]int
}

func (f *fakeIndexer) IndexDocument(_ context.Context, filename string, chunks []filing.Chunk, embeddings [][]float32) error {
	if f.indexed == nil {
		f.indexed = make(map[string]int)
	}
	if len(chunks) != len(embeddings) {
		return errors.New("chunk/embedding count mismatch")
	}
	f.indexed[filename] = len(chunks)
	return nil
}

const workerFilingHTML = `<html><body>
<h1>Annual Report</h1>
<p>Revenue increased over the prior fiscal year driven by advertising growth.</p>
<h2>Risk Factors</h2>
<p>Key risk factors include market competition and regulatory changes worldwide.</p>
</body></html>`

func writeFiling(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write filing: %v", err)
	}
}

func newTestWorker(embedder Embedder, store Indexer) *Worker {
	splitter := chunker.New(tokenizer.Estimator{}, chunker.Config{ChunkSize: 500})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(splitter, embedder, store, log)
}

func TestWorker_ProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiling(t, dir, "GOOGL_10-K_2023_demo.htm", workerFilingHTML)
	writeFiling(t, dir, "MSFT_10-K_2022_demo.html", workerFilingHTML)
	writeFiling(t, dir, "notes.txt", "not a filing")

	emb := &fakeEmbedder{}
	idx := &fakeIndexer{}
	job := NewJob(dir)

	newTestWorker(emb, idx).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalFiles != 2 {
		t.Errorf("expected 2 HTML files, got %d", snap.Progress.TotalFiles)
	}
	if snap.Progress.FilesProcessed != 2 || snap.Progress.FilesFailed != 0 {
		t.Errorf("processed/failed: %d/%d", snap.Progress.FilesProcessed, snap.Progress.FilesFailed)
	}
	if len(idx.indexed) != 2 {
		t.Errorf("expected 2 indexed documents, got %d", len(idx.indexed))
	}
	if idx.indexed["GOOGL_10-K_2023_demo.htm"] == 0 {
		t.Error("GOOGL filing produced no chunks")
	}
	if snap.Progress.ChunksIndexed == 0 {
		t.Error("chunk count not accumulated")
	}
}

func TestWorker_PerFileFailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writeFiling(t, dir, "GOOGL_10-K_2023_demo.htm", workerFilingHTML)
	writeFiling(t, dir, "NVDA_10-K_2024_demo.htm",
		strings.ReplaceAll(workerFilingHTML, "Revenue increased", "POISON marker paragraph"))

	emb := &fakeEmbedder{fail: map[string]bool{"POISON": true}}
	idx := &fakeIndexer{}
	job := NewJob(dir)

	newTestWorker(emb, idx).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if snap.Progress.FilesProcessed != 1 || snap.Progress.FilesFailed != 1 {
		t.Errorf("processed/failed: %d/%d", snap.Progress.FilesProcessed, snap.Progress.FilesFailed)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "NVDA_10-K_2024_demo.htm") {
		t.Errorf("error should name the failing file: %v", snap.Progress.Errors)
	}
	if _, ok := idx.indexed["NVDA_10-K_2024_demo.htm"]; ok {
		t.Error("failed filing must not be indexed")
	}
}

func TestWorker_EmptyDirectoryFails(t *testing.T) {
	job := NewJob(t.TempDir())
	newTestWorker(&fakeEmbedder{}, &fakeIndexer{}).Process(context.Background(), job)
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected failed for empty directory, got %s", job.Snapshot().Status)
	}
}

func TestWorker_MissingDirectoryFails(t *testing.T) {
	job := NewJob(filepath.Join(t.TempDir(), "does-not-exist"))
	newTestWorker(&fakeEmbedder{}, &fakeIndexer{}).Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected failed, got %s", snap.Status)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected an error recorded")
	}
}
