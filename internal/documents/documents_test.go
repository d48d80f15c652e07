package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFormatFromURL(t *testing.T) {
	tests := []struct {
		url    string
		format Format
		ok     bool
	}{
		{"https://pncp.gov.br/arquivos/edital.PDF", FormatPDF, true},
		{"https://x.gov.br/anexo.docx?download=1", FormatDOCX, true},
		{"https://x.gov.br/planilha.xlsx#aba", FormatXLSX, true},
		{"https://x.gov.br/aviso.htm", FormatHTML, true},
		{"https://x.gov.br/leia-me.txt", FormatText, true},
		{"https://x.gov.br/arquivo.zip", "", false},
		{"https://x.gov.br/sem-extensao", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, _, ok := FormatFromURL(tt.url)
			if ok != tt.ok || got != tt.format {
				t.Fatalf("FormatFromURL(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.format, tt.ok)
			}
		})
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestReadDOCX(t *testing.T) {
	xmlBody := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>EDITAL DE LICITAÇÃO</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Abertura em </w:t></w:r><w:r><w:t>10/03/2025</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Valor</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>R$ 1.000,00</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`

	got, err := ReadDOCX(buildDOCX(t, xmlBody))
	if err != nil {
		t.Fatalf("ReadDOCX() error = %v", err)
	}
	if !strings.Contains(got.Text, "EDITAL DE LICITAÇÃO") || !strings.Contains(got.Text, "Abertura em 10/03/2025") {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if len(got.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(got.Tables))
	}
	tbl := got.Tables[0]
	if strings.Join(tbl.Headers, "|") != "Item|Valor" {
		t.Fatalf("headers = %v", tbl.Headers)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][1] != "R$ 1.000,00" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
}

func TestReadDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	_ = zw.Close()

	if _, err := ReadDOCX(buf.Bytes()); !errors.Is(err, errNoDocumentXML) {
		t.Fatalf("expected errNoDocumentXML, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Lote")
	_ = f.SetCellValue("Sheet1", "B1", "Descrição")
	_ = f.SetCellValue("Sheet1", "A2", "1")
	_ = f.SetCellValue("Sheet1", "B2", "Notebooks")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	got, err := ReadXLSX(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if len(got.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(got.Tables))
	}
	if got.Tables[0].Context != "Sheet1" || got.Tables[0].Headers[1] != "Descrição" {
		t.Fatalf("unexpected table: %+v", got.Tables[0])
	}
	if !strings.Contains(got.Text, "Notebooks") {
		t.Fatalf("text missing cell content: %q", got.Text)
	}
}

func TestReadHTML(t *testing.T) {
	page := `<html><head><script>alert("x")</script></head><body>
<h2>Cronograma</h2>
<p>Sessão pública<br>às 10h</p>
<table><caption>Itens</caption>
<tr><th>Item</th><th>Quantidade</th></tr>
<tr><td>Cadeira</td><td>20</td></tr>
</table></body></html>`

	got, err := ReadHTML([]byte(page))
	if err != nil {
		t.Fatalf("ReadHTML() error = %v", err)
	}
	if strings.Contains(got.Text, "alert") {
		t.Fatalf("script content leaked into text: %q", got.Text)
	}
	if !strings.Contains(got.Text, "Sessão pública\nàs 10h") {
		t.Fatalf("line break not preserved: %q", got.Text)
	}
	if len(got.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(got.Tables))
	}
	tbl := got.Tables[0]
	if tbl.Context != "Itens" || tbl.Headers[0] != "Item" || tbl.Rows[0][0] != "Cadeira" {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestReadTextStripsBOM(t *testing.T) {
	got := ReadText([]byte("\ufeffPregão eletrônico"))
	if got.Text != "Pregão eletrônico" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestTruncateTextCountsRunes(t *testing.T) {
	if got := TruncateText("licitação", 8); got != "licitaçã" {
		t.Fatalf("TruncateText = %q", got)
	}
	if got := TruncateText("curto", 0); got != "curto" {
		t.Fatalf("TruncateText with no limit = %q", got)
	}
}

func TestFetchStatusAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.pdf":
			http.NotFound(w, r)
		case "/big.txt":
			_, _ = w.Write(bytes.Repeat([]byte("a"), 64))
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	// The test server listens on loopback, which the default transport blocks.
	f := &HTTPFetcher{Client: srv.Client(), MaxBytes: 32}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Fatal("expected status error")
	} else {
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 StatusError, got %v", err)
		}
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/big.txt"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	doc, err := f.Fetch(context.Background(), srv.URL+"/small.txt")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(doc.Body) != "ok" {
		t.Fatalf("body = %q", doc.Body)
	}
}

func TestDefaultFetcherBlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, 0)
	if _, err := f.Fetch(context.Background(), srv.URL+"/x.txt"); err == nil {
		t.Fatal("expected loopback dial to be blocked")
	}
}
