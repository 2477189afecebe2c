// Package index persists chunks and their embedding vectors in sqlite and
// serves brute-force cosine search over them. Chunk ids repeat across
// filings of the same company and year, so rows are keyed by
// (filename, ordinal) and re-ingesting a file replaces its rows.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"filingrag/internal/filing"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    filename       TEXT PRIMARY KEY,
    company        TEXT,
    filing_type    TEXT,
    year           TEXT,
    chunk_count    INTEGER,
    processed_date TEXT
);

CREATE TABLE IF NOT EXISTS chunks (
    filename       TEXT NOT NULL,
    ordinal        INTEGER NOT NULL,
    chunk_id       TEXT NOT NULL,
    content        TEXT NOT NULL,
    section_title  TEXT,
    section_level  INTEGER,
    section_type   TEXT,
    content_type   TEXT,
    table_index    INTEGER,
    company        TEXT,
    filing_type    TEXT,
    year           TEXT,
    token_count    INTEGER,
    processed_date TEXT,
    embedding      BLOB,
    PRIMARY KEY (filename, ordinal),
    FOREIGN KEY (filename) REFERENCES documents(filename) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chunks_company ON chunks(company);
CREATE INDEX IF NOT EXISTS idx_chunks_year ON chunks(year);
`

// Store is a sqlite-backed chunk index.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply index schema: %w", err)
	}
	return &Store{db: db, log: log.With("component", "index")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IndexDocument replaces any previously stored rows for filename with the
// given chunks and their embeddings. embeddings[i] belongs to chunks[i] and
// may be nil when embedding is skipped.
func (s *Store) IndexDocument(ctx context.Context, filename string, chunks []filing.Chunk, embeddings [][]float32) error {
	if embeddings != nil && len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count %d does not match chunk count %d", len(embeddings), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("clear document: %w", err)
	}

	var docMeta filing.Meta
	if len(chunks) > 0 {
		docMeta = chunks[0].Meta
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (filename, company, filing_type, year, chunk_count, processed_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		filename, docMeta.Company, docMeta.FilingType, docMeta.Year, len(chunks), docMeta.ProcessedDate,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (filename, ordinal, chunk_id, content, section_title, section_level,
			section_type, content_type, table_index, company, filing_type, year,
			token_count, processed_date, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		var tableIndex any
		if c.Meta.TableIndex != nil {
			tableIndex = *c.Meta.TableIndex
		}
		var blob []byte
		if embeddings != nil {
			blob = vectorToBytes(embeddings[i])
		}
		if _, err := stmt.ExecContext(ctx,
			filename, i, c.ID, c.Text, c.Meta.SectionTitle, c.Meta.SectionLevel,
			c.Meta.SectionType, c.Meta.ContentType, tableIndex, c.Meta.Company,
			c.Meta.FilingType, c.Meta.Year, c.TokenCount, c.Meta.ProcessedDate, blob,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	s.log.Info("document indexed", "filename", filename, "chunks", len(chunks))
	return nil
}

// Match is one search hit.
type Match struct {
	Chunk filing.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Search scans stored embeddings and returns the topK chunks by cosine
// similarity to the query vector. Empty company/year apply no filter.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, company, year string) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT filename, chunk_id, content, section_title, section_level, section_type,
			content_type, table_index, company, filing_type, year, token_count,
			processed_date, embedding
		FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if company != "" {
		query += ` AND company = ?`
		args = append(args, company)
	}
	if year != "" {
		query += ` AND year = ?`
		args = append(args, year)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		c, blob, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		score := cosine(vector, bytesToVector(blob))
		matches = append(matches, Match{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search scan: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func scanChunk(rows *sql.Rows) (filing.Chunk, []byte, error) {
	var c filing.Chunk
	var tableIndex sql.NullInt64
	var blob []byte
	err := rows.Scan(
		&c.Meta.Filename, &c.ID, &c.Text, &c.Meta.SectionTitle, &c.Meta.SectionLevel,
		&c.Meta.SectionType, &c.Meta.ContentType, &tableIndex, &c.Meta.Company,
		&c.Meta.FilingType, &c.Meta.Year, &c.TokenCount, &c.Meta.ProcessedDate, &blob,
	)
	if err != nil {
		return filing.Chunk{}, nil, fmt.Errorf("scan chunk: %w", err)
	}
	if tableIndex.Valid {
		v := int(tableIndex.Int64)
		c.Meta.TableIndex = &v
	}
	return c, blob, nil
}

// Stats summarizes index contents.
type Stats struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Companies []string `json:"companies"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Documents); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.Chunks); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT company FROM documents WHERE company != '' ORDER BY company`)
	if err != nil {
		return Stats{}, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var company string
		if err := rows.Scan(&company); err != nil {
			return Stats{}, fmt.Errorf("scan company: %w", err)
		}
		st.Companies = append(st.Companies, company)
	}
	return st, rows.Err()
}
