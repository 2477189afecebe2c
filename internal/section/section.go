// Package section reinterprets the marked text stream as an ordered list of
// classified document sections.
package section

import (
	"strconv"
	"strings"
)

// Section is one logical subdivision of a filing.
type Section struct {
	Title   string
	Level   int
	Type    string
	Content string
}

// Fallback section used when a document carries no headers at all.
const (
	FallbackTitle = "Document Content"
	FallbackLevel = 1
)

const sectionPrefix = "SECTION_"

// Assemble scans the marked stream and materializes sections. Lines of
// repeated '=' are visual delimiters and are skipped; everything between two
// SECTION_ markers accumulates into the earlier section's content. A stream
// with content but no markers yields the single fallback section.
func Assemble(marked string, c Classifier) []Section {
	if strings.TrimSpace(marked) == "" {
		return nil
	}

	var sections []Section
	current := Section{Level: 0}
	var body []string
	sawHeader := false

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			current.Content = content
			current.Type = c.Classify(current.Title)
			sections = append(sections, current)
		}
		body = body[:0]
	}

	for _, line := range strings.Split(marked, "\n") {
		trimmed := strings.TrimSpace(line)
		if isRuleLine(trimmed) {
			continue
		}
		if strings.HasPrefix(trimmed, sectionPrefix) {
			flush()
			sawHeader = true
			current = parseHeader(trimmed)
			continue
		}
		// Blank lines are kept: they are the paragraph boundaries the
		// splitter relies on.
		body = append(body, line)
	}
	flush()

	if !sawHeader {
		if len(sections) == 0 {
			return nil
		}
		return []Section{{
			Title:   FallbackTitle,
			Level:   FallbackLevel,
			Type:    c.Classify(FallbackTitle),
			Content: sections[0].Content,
		}}
	}
	return sections
}

// parseHeader splits "SECTION_2: Risk Factors" into level and title. An
// unparseable level defaults to 1.
func parseHeader(line string) Section {
	rest := strings.TrimPrefix(line, sectionPrefix)
	level := 1
	title := ""
	if i := strings.Index(rest, ":"); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(rest[:i])); err == nil {
			level = n
		}
		title = strings.TrimSpace(rest[i+1:])
	}
	return Section{Title: title, Level: level}
}

func isRuleLine(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '=' {
			return false
		}
	}
	return true
}
