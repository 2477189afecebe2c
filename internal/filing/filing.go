// Package filing holds the shared value types of the ingestion pipeline:
// the terminal Chunk record, its metadata bag, and the filename convention
// used to derive company/filing/year metadata.
package filing

import (
	"strings"
	"time"
)

// Content types attached to chunks.
const (
	ContentText  = "text"
	ContentTable = "financial_table"
)

// Chunk is a bounded-size unit of text plus metadata, ready for embedding
// and indexing.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	Meta       Meta   `json:"metadata"`
}

// Meta is the metadata bag attached to every chunk. Company, FilingType and
// Year are omitted (not empty-stringed) when the source filename does not
// follow the underscore convention.
type Meta struct {
	SectionTitle  string `json:"section_title"`
	SectionLevel  int    `json:"section_level"`
	SectionType   string `json:"section_type"`
	ContentType   string `json:"content_type"`
	TableIndex    *int   `json:"table_index,omitempty"`
	Company       string `json:"company,omitempty"`
	FilingType    string `json:"filing_type,omitempty"`
	Year          string `json:"year,omitempty"`
	Filename      string `json:"filename"`
	ProcessedDate string `json:"processed_date"`
}

// FileMeta carries filename-derived metadata for one document.
type FileMeta struct {
	Filename      string
	Company       string
	FilingType    string
	Year          string
	ProcessedDate string
}

// ParseName derives metadata from a filename using the
// {COMPANY}_{FILING_TYPE}_{YEAR}_{...}.htm convention. Filenames with fewer
// than three underscore-delimited parts keep those fields empty.
func ParseName(filename string) FileMeta {
	m := FileMeta{
		Filename:      filename,
		ProcessedDate: time.Now().Format(time.RFC3339),
	}
	if !strings.Contains(filename, "_") {
		return m
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 3 {
		return m
	}
	m.Company = parts[0]
	m.FilingType = parts[1]
	m.Year = strings.TrimSuffix(strings.TrimSuffix(parts[2], ".html"), ".htm")
	return m
}
