package documents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

// ReadXLSX turns every non-empty sheet into a table (first row as headers)
// and a tab-separated text rendition.
func ReadXLSX(data []byte) (*Extracted, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	var (
		text   strings.Builder
		tables []models.Table
	)

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
		}
		rows = dropEmptyRows(rows)
		if len(rows) == 0 {
			continue
		}

		text.WriteString(sheet)
		text.WriteString("\n")
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		text.WriteString("\n")

		tables = append(tables, models.Table{
			Headers: rows[0],
			Rows:    rows[1:],
			Context: sheet,
		})
	}

	return &Extracted{Text: strings.TrimSpace(text.String()), Tables: tables}, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
