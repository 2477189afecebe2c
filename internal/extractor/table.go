package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// serializeTable renders a table subtree as pipe-joined rows: header-cell
// rows first (followed by a dash rule), then data rows. Rows belonging to
// nested tables are covered by the same pass, so the outermost table is the
// single unit of extraction.
func serializeTable(n *html.Node) []string {
	doc := goquery.NewDocumentFromNode(n)

	var rows []string
	headerDone := false
	doc.Find("tr").Each(func(i int, tr *goquery.Selection) {
		// Direct children only: a nested table's cells belong to its own
		// tr entries, not to the enclosing row.
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		var texts []string
		empty := true
		cells.Each(func(_ int, cell *goquery.Selection) {
			t := cleanCell(cell.Text())
			if t != "" {
				empty = false
			}
			texts = append(texts, t)
		})
		if empty {
			return
		}
		line := strings.Join(texts, " | ")

		// A leading all-<th> row is the header; rule it off from the data.
		if !headerDone && len(rows) == 0 && tr.ChildrenFiltered("th").Length() == cells.Length() {
			rows = append(rows, line, strings.Repeat("-", len(line)))
			headerDone = true
			return
		}
		rows = append(rows, line)
	})
	return rows
}

func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return collapseSpace(s)
}
