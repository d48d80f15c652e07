package documents

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatText Format = "txt"
)

// FormatFromURL infers the format from the URL path extension only.
func FormatFromURL(rawURL string) (Format, string, bool) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")

	switch ext {
	case "pdf":
		return FormatPDF, ext, true
	case "docx":
		return FormatDOCX, ext, true
	case "xlsx":
		return FormatXLSX, ext, true
	case "html", "htm":
		return FormatHTML, ext, true
	case "txt":
		return FormatText, ext, true
	}
	return "", ext, false
}

// Extracted is the raw material read out of a document.
type Extracted struct {
	Text   string
	Tables []models.Table
}

// Read dispatches to the reader for format.
func Read(format Format, data []byte) (*Extracted, error) {
	switch format {
	case FormatPDF:
		text, err := ReadPDF(data)
		if err != nil {
			return nil, err
		}
		return &Extracted{Text: text}, nil
	case FormatDOCX:
		return ReadDOCX(data)
	case FormatXLSX:
		return ReadXLSX(data)
	case FormatHTML:
		return ReadHTML(data)
	case FormatText:
		return ReadText(data), nil
	}
	return nil, fmt.Errorf("no reader for format %q", format)
}

func ReadText(data []byte) *Extracted {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return &Extracted{Text: text}
}

var (
	multiSpace   = regexp.MustCompile(`[ \t\f\v]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// CleanText collapses runs of spaces and blank lines while keeping line breaks.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// TruncateText cuts text to at most maxChars runes. maxChars <= 0 disables it.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}
