package chunker

import (
	"errors"
	"regexp"
	"strings"

	"filingrag/internal/filing"
	"filingrag/internal/section"
	"filingrag/internal/tokenizer"
)

// flat is the legacy splitting mode: tokenize the whole document, slide a
// fixed-size window with overlap, decode each window back to text. Structure
// is ignored; every chunk is tagged as plain text under the fallback section.
func (s *Splitter) flat(text string, meta filing.FileMeta) ([]filing.Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	size := s.cfg.ChunkSize
	overlap := s.cfg.ChunkOverlap
	if overlap >= size {
		overlap = size / 10
	}

	windows, err := s.windows(text, size, overlap)
	if err != nil {
		return nil, err
	}

	sec := section.Section{
		Title: section.FallbackTitle,
		Level: section.FallbackLevel,
		Type:  section.TypeGeneral,
	}
	chunks := make([]filing.Chunk, 0, len(windows))
	ordinal := 0
	for _, w := range windows {
		c, err := s.finalize(w, sec, meta, filing.ContentText, nil, &ordinal)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (s *Splitter) windows(text string, size, overlap int) ([]string, error) {
	tokens, err := s.tok.Encode(text)
	if errors.Is(err, tokenizer.ErrNotSupported) {
		// Count-only tokenizer: degrade to word-span windows, which keep
		// the text byte-exact.
		return wordWindows(text, size, overlap), nil
	}
	if err != nil {
		return nil, err
	}

	var out []string
	for start := 0; start < len(tokens); start += size - overlap {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		w, err := s.tok.Decode(tokens[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, w)
		if end == len(tokens) {
			break
		}
	}
	return out, nil
}

// wordRe matches word-ish tokens or single non-space characters.
var wordRe = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)

// wordWindows slides the token window over regex word spans, slicing the
// original text so nothing is re-spelled by a decoder.
func wordWindows(text string, size, overlap int) []string {
	spans := wordRe.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return nil
	}

	var out []string
	for start := 0; start < len(spans); start += size - overlap {
		end := start + size
		if end > len(spans) {
			end = len(spans)
		}
		out = append(out, text[spans[start][0]:spans[end-1][1]])
		if end == len(spans) {
			break
		}
	}
	return out
}
