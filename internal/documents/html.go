package documents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

var htmlPolicy = bluemonday.UGCPolicy()

// ReadHTML sanitizes the page, lifts out its tables and flattens the rest to text.
func ReadHTML(data []byte) (*Extracted, error) {
	sanitized := htmlPolicy.SanitizeBytes(data)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sanitized))
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}

	tables := extractHTMLTables(doc)

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return &Extracted{
		Text:   CleanText(doc.Text()),
		Tables: tables,
	}, nil
}

// HTMLToText converts an HTML fragment to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return CleanText(doc.Text())
}

func extractHTMLTables(doc *goquery.Document) []models.Table {
	var tables []models.Table

	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var t models.Table

		t.Context = cellText(tbl.Find("caption").First())
		if t.Context == "" {
			t.Context = TruncateText(cellText(tbl.PrevAll().Filter("h1, h2, h3, h4, h5, h6, p").First()), 200)
		}

		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, cellText(c))
			})
			if len(cells) == 0 {
				return
			}
			headerRow := tr.Find("th").Length() > 0 && tr.Find("td").Length() == 0
			if headerRow && t.Headers == nil {
				t.Headers = cells
				return
			}
			t.Rows = append(t.Rows, cells)
		})

		if t.Headers == nil && len(t.Rows) > 0 {
			t.Headers, t.Rows = t.Rows[0], t.Rows[1:]
		}
		if len(t.Headers) == 0 && len(t.Rows) == 0 {
			return
		}
		tables = append(tables, t)
	})

	return tables
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
