// Package chunker splits reconstructed filing sections into bounded-size,
// metadata-tagged chunks. Two strategies are available behind one interface:
// the structure-aware splitter (default) honors section, table and paragraph
// boundaries; the legacy flat splitter slides a fixed token window with
// overlap across the whole document.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"filingrag/internal/extractor"
	"filingrag/internal/filing"
	"filingrag/internal/section"
	"filingrag/internal/tokenizer"
)

// Strategy names.
const (
	StrategyStructure = "structure"
	StrategyFlat      = "flat"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int    // Soft upper bound on chunk size in tokens.
	ChunkOverlap int    // Overlap between windows, flat strategy only.
	Strategy     string // StrategyStructure (default) or StrategyFlat.
}

// DefaultConfig returns the defaults the original pipeline shipped with.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Strategy:     StrategyStructure,
	}
}

// Splitter converts one HTML filing into chunks. It holds no per-document
// state; concurrent Process calls are independent.
type Splitter struct {
	tok        tokenizer.Tokenizer
	classifier section.Classifier
	cfg        Config
}

// New creates a Splitter. Zero config fields fall back to defaults.
func New(tok tokenizer.Tokenizer, cfg Config) *Splitter {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	return &Splitter{
		tok:        tok,
		classifier: section.DefaultClassifier(),
		cfg:        cfg,
	}
}

var tableRe = regexp.MustCompile(`(?s)\[FINANCIAL_TABLE\]\s*(.*?)\s*\[/FINANCIAL_TABLE\]`)

// Process runs the whole pipeline for one document: extraction, section
// assembly, and splitting. It either fully succeeds or returns an error;
// a partially chunked document is never returned.
func (s *Splitter) Process(htmlText, filename string) ([]filing.Chunk, error) {
	meta := filing.ParseName(filename)

	if s.cfg.Strategy == StrategyFlat {
		return s.flat(extractor.PlainText(htmlText), meta)
	}

	marked := extractor.ExtractMarked(htmlText)
	sections := section.Assemble(marked, s.classifier)

	var chunks []filing.Chunk
	ordinal := 0
	for _, sec := range sections {
		secChunks, err := s.splitSection(sec, meta, &ordinal)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, secChunks...)
	}
	return chunks, nil
}

// splitSection runs the table strategy, then the prose strategy on the
// residual body. Table spans are removed before prose splitting so no
// content is chunked twice.
func (s *Splitter) splitSection(sec section.Section, meta filing.FileMeta, ordinal *int) ([]filing.Chunk, error) {
	var chunks []filing.Chunk

	tables := tableRe.FindAllStringSubmatch(sec.Content, -1)
	for ti, m := range tables {
		tableChunks, err := s.splitTable(m[1], ti, sec, meta, ordinal)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, tableChunks...)
	}

	residual := tableRe.ReplaceAllString(sec.Content, "")
	proseChunks, err := s.splitProse(residual, sec, meta, ordinal)
	if err != nil {
		return nil, err
	}
	return append(chunks, proseChunks...), nil
}

// splitTable emits a whole table when it fits the bound, otherwise splits it
// row by row. A single row over the bound is emitted whole rather than
// truncated.
func (s *Splitter) splitTable(body string, tableIndex int, sec section.Section, meta filing.FileMeta, ordinal *int) ([]filing.Chunk, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}

	total, err := s.tok.Count(body)
	if err != nil {
		return nil, err
	}
	if total <= s.cfg.ChunkSize {
		c, err := s.finalize(body, sec, meta, filing.ContentTable, &tableIndex, ordinal)
		if err != nil {
			return nil, err
		}
		return []filing.Chunk{c}, nil
	}

	var chunks []filing.Chunk
	var buf []string
	running := 0
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		c, err := s.finalize(strings.Join(buf, "\n"), sec, meta, filing.ContentTable, &tableIndex, ordinal)
		if err != nil {
			return err
		}
		chunks = append(chunks, c)
		buf = buf[:0]
		running = 0
		return nil
	}

	for _, row := range strings.Split(body, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		n, err := s.tok.Count(row)
		if err != nil {
			return nil, err
		}
		if running > 0 && running+n > s.cfg.ChunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		buf = append(buf, row)
		running += n
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// splitProse accumulates paragraphs up to the bound, dropping to sentence
// granularity for paragraphs that exceed it on their own.
func (s *Splitter) splitProse(content string, sec section.Section, meta filing.FileMeta, ordinal *int) ([]filing.Chunk, error) {
	var chunks []filing.Chunk
	var buf []string
	running := 0
	flush := func(sep string) error {
		if len(buf) == 0 {
			return nil
		}
		c, err := s.finalize(strings.Join(buf, sep), sec, meta, filing.ContentText, nil, ordinal)
		if err != nil {
			return err
		}
		chunks = append(chunks, c)
		buf = buf[:0]
		running = 0
		return nil
	}

	for _, para := range splitParagraphs(content) {
		n, err := s.tok.Count(para)
		if err != nil {
			return nil, err
		}

		if n > s.cfg.ChunkSize {
			if err := flush("\n\n"); err != nil {
				return nil, err
			}
			// Sentence granularity for the oversized paragraph.
			for _, sent := range splitSentences(para) {
				sn, err := s.tok.Count(sent)
				if err != nil {
					return nil, err
				}
				if running > 0 && running+sn > s.cfg.ChunkSize {
					if err := flush(" "); err != nil {
						return nil, err
					}
				}
				buf = append(buf, sent)
				running += sn
			}
			if err := flush(" "); err != nil {
				return nil, err
			}
			continue
		}

		if running > 0 && running+n > s.cfg.ChunkSize {
			if err := flush("\n\n"); err != nil {
				return nil, err
			}
		}
		buf = append(buf, para)
		running += n
	}
	if err := flush("\n\n"); err != nil {
		return nil, err
	}
	return chunks, nil
}

// finalize stamps metadata, id and token count onto one chunk and advances
// the document-wide ordinal.
func (s *Splitter) finalize(text string, sec section.Section, meta filing.FileMeta, contentType string, tableIndex *int, ordinal *int) (filing.Chunk, error) {
	text = strings.TrimSpace(text)
	count, err := s.tok.Count(text)
	if err != nil {
		return filing.Chunk{}, fmt.Errorf("count tokens: %w", err)
	}

	company := meta.Company
	if company == "" {
		company = "unknown"
	}
	year := meta.Year
	if year == "" {
		year = "unknown"
	}

	var ti *int
	if tableIndex != nil {
		v := *tableIndex
		ti = &v
	}

	c := filing.Chunk{
		ID:         fmt.Sprintf("%s_%s_%d", company, year, *ordinal),
		Text:       text,
		TokenCount: count,
		Meta: filing.Meta{
			SectionTitle:  sec.Title,
			SectionLevel:  sec.Level,
			SectionType:   sec.Type,
			ContentType:   contentType,
			TableIndex:    ti,
			Company:       meta.Company,
			FilingType:    meta.FilingType,
			Year:          meta.Year,
			Filename:      meta.Filename,
			ProcessedDate: meta.ProcessedDate,
		},
	}
	*ordinal++
	return c, nil
}

// splitParagraphs splits on blank-line boundaries.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks a paragraph after '.', '!' or '?' followed by
// whitespace and an uppercase letter.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
			j++
		}
		if j == i+1 || j >= len(text) || text[j] < 'A' || text[j] > 'Z' {
			continue
		}
		if sent := strings.TrimSpace(text[start : i+1]); sent != "" {
			out = append(out, sent)
		}
		start = j
		i = j - 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
