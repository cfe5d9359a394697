// Package csv loads a delimited upload into the in-memory table the
// transform pipeline operates on.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"ordersetl/internal/table"
)

// Load parses CSV from r into a columnar table. The first record is the
// header; header names are trimmed, BOM-stripped, lowercased and
// space-to-underscore normalized. Cell values are trimmed and empty cells
// become nil. Records shorter than the header are padded with nil; longer
// records are truncated.
//
// Source files for this dataset are sometimes exported as Latin-1 (accented
// category and city names); input that is not valid UTF-8 is transparently
// re-decoded as ISO 8859-1.
func Load(r io.Reader) (*table.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("csv: decode latin-1: %w", err)
		}
	}

	cr := csv.NewReader(strings.NewReader(string(raw)))
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	names := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		names[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	}

	cols := make([]table.Column, len(names))
	for i, n := range names {
		cols[i] = table.Column{Name: n}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
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
		return nil, fmt.Errorf("csv: %w", err)
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("csv: no data rows")
	}
	return t, nil
}
