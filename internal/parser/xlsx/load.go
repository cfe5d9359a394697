// Package xlsx loads a spreadsheet upload into the in-memory table the
// transform pipeline operates on.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ordersetl/internal/table"
)

// Load parses the first sheet of an XLSX workbook. Row 1 is the header,
// normalized the same way as CSV headers. Cells are trimmed, empty cells
// become nil, and short rows are padded with nil.
func Load(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: empty sheet")
	}

	hdr := rows[0]
	cols := make([]table.Column, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		cols[i] = table.Column{Name: strings.ReplaceAll(strings.ToLower(h), " ", "_")}
	}

	for _, rec := range rows[1:] {
		for i := range cols {
			var v any
			if i < len(rec) {
				s := strings.TrimSpace(rec[i])
				if s != "" {
					v = s
				}
			}
			cols[i].Values = append(cols[i].Values, v)
		}
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("xlsx: no data rows")
	}
	return t, nil
}
