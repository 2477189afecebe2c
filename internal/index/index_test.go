package index

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"filingrag/internal/filing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunks(filename, company, year string) []filing.Chunk {
	ti := 0
	return []filing.Chunk{
		{
			ID:         company + "_" + year + "_0",
			Text:       "Metric | Value\n2023 | $307,394",
			TokenCount: 8,
			Meta: filing.Meta{
				SectionTitle: "Financial Highlights",
				SectionLevel: 2,
				SectionType:  "financial",
				ContentType:  filing.ContentTable,
				TableIndex:   &ti,
				Company:      company,
				FilingType:   "10-K",
				Year:         year,
				Filename:     filename,
			},
		},
		{
			ID:         company + "_" + year + "_1",
			Text:       "Revenue grew across all segments during the year.",
			TokenCount: 8,
			Meta: filing.Meta{
				SectionTitle: "Business Overview",
				SectionLevel: 2,
				SectionType:  "business",
				ContentType:  filing.ContentText,
				Company:      company,
				FilingType:   "10-K",
				Year:         year,
				Filename:     filename,
			},
		},
	}
}

func TestIndexDocument_AndSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	chunks := testChunks("GOOGL_10-K_2023_demo.htm", "GOOGL", "2023")
	embeddings := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if err := s.IndexDocument(ctx, "GOOGL_10-K_2023_demo.htm", chunks, embeddings); err != nil {
		t.Fatalf("index: %v", err)
	}

	matches, err := s.Search(ctx, []float32{0.9, 0.1, 0}, 1, "", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Chunk.ID != "GOOGL_2023_0" {
		t.Errorf("expected the table chunk to rank first, got %q", m.Chunk.ID)
	}
	if m.Chunk.Meta.TableIndex == nil || *m.Chunk.Meta.TableIndex != 0 {
		t.Errorf("table_index lost in round trip: %v", m.Chunk.Meta.TableIndex)
	}
	if m.Score <= 0.9 {
		t.Errorf("unexpected score: %f", m.Score)
	}
}

func TestIndexDocument_ReplacesExistingRows(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	filename := "GOOGL_10-K_2023_demo.htm"

	if err := s.IndexDocument(ctx, filename, testChunks(filename, "GOOGL", "2023"), [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("first index: %v", err)
	}
	// Re-ingest with a single chunk; the old two rows must be gone.
	one := testChunks(filename, "GOOGL", "2023")[:1]
	if err := s.IndexDocument(ctx, filename, one, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("second index: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Documents != 1 || st.Chunks != 1 {
		t.Errorf("expected 1 document / 1 chunk after replace, got %d / %d", st.Documents, st.Chunks)
	}
}

func TestSearch_CompanyAndYearFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	emb := [][]float32{{1, 0}, {1, 0}}
	if err := s.IndexDocument(ctx, "GOOGL_10-K_2023_a.htm", testChunks("GOOGL_10-K_2023_a.htm", "GOOGL", "2023"), emb); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := s.IndexDocument(ctx, "MSFT_10-K_2022_b.htm", testChunks("MSFT_10-K_2022_b.htm", "MSFT", "2022"), emb); err != nil {
		t.Fatalf("index: %v", err)
	}

	matches, err := s.Search(ctx, []float32{1, 0}, 10, "MSFT", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, m := range matches {
		if m.Chunk.Meta.Company != "MSFT" {
			t.Errorf("company filter leaked: %+v", m.Chunk.Meta)
		}
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 MSFT chunks, got %d", len(matches))
	}

	matches, err = s.Search(ctx, []float32{1, 0}, 10, "MSFT", "2023")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no MSFT 2023 chunks, got %d", len(matches))
	}
}

func TestIndexDocument_EmbeddingCountMismatch(t *testing.T) {
	s := testStore(t)
	chunks := testChunks("GOOGL_10-K_2023_a.htm", "GOOGL", "2023")
	err := s.IndexDocument(context.Background(), "GOOGL_10-K_2023_a.htm", chunks, [][]float32{{1}})
	if err == nil {
		t.Fatal("expected error for mismatched embedding count")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3.75, 0}
	got := bytesToVector(vectorToBytes(v))
	if len(got) != len(v) {
		t.Fatalf("length: got %d", len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("element %d: got %f, want %f", i, got[i], v[i])
		}
	}
	if bytesToVector([]byte{1, 2, 3}) != nil {
		t.Error("expected nil for malformed blob")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("dimension mismatch: got %f", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero norm: got %f", got)
	}
}
