package service

import (
	"context"
	"fmt"

	"ordersetl/internal/etl"
	"ordersetl/internal/schema"
	"ordersetl/internal/storage"
)

// TablePreview is the first few rows of a persisted table plus its total row
// count, the shape the GET endpoints return.
type TablePreview struct {
	Table   string           `json:"table"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Total   int64            `json:"total"`
}

// Preview returns the first rows of any warehouse table: a dimension entity
// key ("sellers"), "fact_table" or "top_sellers".
func (s *Service) Preview(ctx context.Context, key string) (*TablePreview, error) {
	const op = "preview"

	spec, ok := specByKey(key)
	if !ok {
		return nil, etl.NewError(etl.KindInvalidInput, op, fmt.Sprintf("unknown table %q", key))
	}

	names := spec.ColumnNames()
	rows, total, err := s.repo.SelectFirstN(ctx, spec.Name, names, s.previewRows)
	if err != nil {
		return nil, etl.WrapError(etl.KindPersistence, op, err)
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(names))
		for j, name := range names {
			m[name] = row[j]
		}
		out[i] = m
	}
	return &TablePreview{Table: spec.Name, Columns: names, Rows: out, Total: total}, nil
}

func specByKey(key string) (storage.TableSpec, bool) {
	if ent, ok := schema.ByKey(key); ok {
		return ent.Table, true
	}
	switch key {
	case schema.Fact().Name:
		return schema.Fact(), true
	case schema.TopSellers().Name:
		return schema.TopSellers(), true
	}
	return storage.TableSpec{}, false
}
