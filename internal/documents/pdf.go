package documents

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	rpdf "rsc.io/pdf"
)

// ReadPDF extracts page text with rsc.io/pdf and falls back to the
// ledongthuc reader, which copes with more font encodings. A PDF without a
// text layer yields "" and no error.
func ReadPDF(data []byte) (string, error) {
	text, err := readPDFFragments(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	plain, plainErr := readPDFPlainText(data)
	if plainErr == nil {
		return plain, nil
	}
	if err != nil {
		return "", fmt.Errorf("pdf: %w (fallback: %v)", err, plainErr)
	}
	return text, nil
}

func readPDFFragments(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		builder.WriteString(joinGlyphs(page.Content().Text))
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// joinGlyphs rebuilds words and lines from per-glyph fragments. A horizontal
// gap wider than a fraction of the font size becomes a space and a baseline
// change becomes a newline.
func joinGlyphs(glyphs []rpdf.Text) string {
	var builder strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				builder.WriteString("\n")
			case g.X-(prev.X+prev.W) > size*0.15:
				builder.WriteString(" ")
			}
		}
		builder.WriteString(g.S)
	}
	return builder.String()
}

func readPDFPlainText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf plain-text reader panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	return builder.String(), nil
}
