// Package extractor walks SEC filing HTML and reconstructs a linear,
// structure-marked text stream: section headers, paragraphs, list blocks and
// pipe-serialized financial tables, in document order.
package extractor

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// BlockKind distinguishes the structural block variants.
type BlockKind int

const (
	KindHeader BlockKind = iota
	KindParagraph
	KindList
	KindTable
)

// Block is one structural unit emitted by the extractor.
type Block struct {
	Kind  BlockKind
	Level int      // header nesting level, 1-4
	Text  string   // header title, paragraph text, or list lines
	Rows  []string // table rows, pipe-joined (includes the header rule line)
}

const (
	// Headers with trimmed text this short are bare numbering, not titles.
	maxNoiseHeaderLen = 3
	// Tables serialized shorter than this are layout artifacts.
	minTableChars = 50
	// Paragraphs shorter than this are wrapper/boilerplate noise.
	minParagraphLen = 20

	sectionRule = "================================================================================"
)

// Extract parses htmlText and returns the document's structural blocks in
// pre-order document order. It never fails: unparseable input degrades to a
// single paragraph block holding the raw text.
func Extract(htmlText string) []Block {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil || doc == nil {
		t := strings.TrimSpace(htmlText)
		if t == "" {
			return nil
		}
		return []Block{{Kind: KindParagraph, Text: collapseSpace(t)}}
	}

	var blocks []Block
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "h1", "h2", "h3", "h4":
				title := collapseSpace(textContent(n))
				if utf8.RuneCountInString(title) > maxNoiseHeaderLen {
					blocks = append(blocks, Block{
						Kind:  KindHeader,
						Level: int(n.Data[1] - '0'),
						Text:  title,
					})
				}
				return // subtree consumed
			case "table":
				// The outermost table owns its whole subtree, nested
				// tables included.
				rows := serializeTable(n)
				if totalLen(rows) > minTableChars {
					blocks = append(blocks, Block{Kind: KindTable, Rows: rows})
				}
				return
			case "ul", "ol":
				if items := listItems(n); len(items) > 0 {
					blocks = append(blocks, Block{
						Kind: KindList,
						Text: "- " + strings.Join(items, "\n- "),
					})
				}
				return
			case "p":
				if t := collapseSpace(textContent(n)); len(t) > minParagraphLen {
					blocks = append(blocks, Block{Kind: KindParagraph, Text: t})
				}
				return
			case "div":
				// Divs that wrap further structure are containers; only
				// leaf divs carry paragraph text of their own.
				if !hasStructuralChild(n) {
					if t := collapseSpace(textContent(n)); len(t) > minParagraphLen {
						blocks = append(blocks, Block{Kind: KindParagraph, Text: t})
					}
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return blocks
}

// Marked renders blocks into the inline-marker text stream consumed by the
// section assembler.
func Marked(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		switch b.Kind {
		case KindHeader:
			sb.WriteString(sectionRule)
			sb.WriteString("\nSECTION_")
			sb.WriteByte(byte('0' + b.Level))
			sb.WriteString(": ")
			sb.WriteString(b.Text)
			sb.WriteString("\n")
			sb.WriteString(sectionRule)
		case KindTable:
			sb.WriteString("[FINANCIAL_TABLE]\n")
			sb.WriteString(strings.Join(b.Rows, "\n"))
			sb.WriteString("\n[/FINANCIAL_TABLE]")
		default:
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ExtractMarked is Extract followed by Marked.
func ExtractMarked(htmlText string) string {
	return Marked(Extract(htmlText))
}

// PlainText strips all markup and collapses whitespace, for the legacy flat
// chunking mode.
func PlainText(htmlText string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil || doc == nil {
		return collapseSpace(htmlText)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return collapseSpace(sb.String())
}

// structuralTags are the element names the walk classifies directly. A div
// containing any of these is treated as a wrapper, not a paragraph.
var structuralTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true,
	"table": true, "p": true, "div": true, "ul": true, "ol": true,
}

func hasStructuralChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && structuralTags[c.Data] {
			return true
		}
		if hasStructuralChild(c) {
			return true
		}
	}
	return false
}

func listItems(n *html.Node) []string {
	var items []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if t := collapseSpace(textContent(n)); t != "" {
				items = append(items, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return items
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func totalLen(rows []string) int {
	n := 0
	for _, r := range rows {
		n += len(r)
	}
	return n
}
