package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

var errNoDocumentXML = errors.New("docx: word/document.xml not found")

type docxTable struct {
	rows [][]string
	row  []string
	cell strings.Builder
}

// ReadDOCX walks word/document.xml, emitting one line per paragraph and
// collecting w:tbl elements as tables. The first row of a table is its header.
func ReadDOCX(data []byte) (*Extracted, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errNoDocumentXML
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}
	defer rc.Close()

	var (
		lines     []string
		paragraph strings.Builder
		inText    bool
		stack     []*docxTable
		tables    []models.Table
	)

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString("\t")
			case "br", "cr":
				paragraph.WriteString("\n")
			case "tbl":
				stack = append(stack, &docxTable{})
			case "tr":
				if len(stack) > 0 {
					stack[len(stack)-1].row = nil
				}
			case "tc":
				if len(stack) > 0 {
					stack[len(stack)-1].cell.Reset()
				}
			}

		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}

		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(paragraph.String())
				paragraph.Reset()
				if text == "" {
					continue
				}
				lines = append(lines, text)
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					if top.cell.Len() > 0 {
						top.cell.WriteString(" ")
					}
					top.cell.WriteString(text)
				}
			case "tc":
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					top.row = append(top.row, top.cell.String())
				}
			case "tr":
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					if len(top.row) > 0 {
						top.rows = append(top.rows, top.row)
					}
				}
			case "tbl":
				if len(stack) == 0 {
					continue
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if len(top.rows) == 0 {
					continue
				}
				tables = append(tables, models.Table{
					Headers: top.rows[0],
					Rows:    top.rows[1:],
				})
			}
		}
	}

	return &Extracted{
		Text:   strings.Join(lines, "\n"),
		Tables: tables,
	}, nil
}
