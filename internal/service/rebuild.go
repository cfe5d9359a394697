package service

import (
	"context"
	"fmt"
	"time"

	"ordersetl/internal/etl"
	"ordersetl/internal/metrics"
	"ordersetl/internal/schema"
	"ordersetl/internal/table"
)

// RebuildResult reports a snapshot rebuild.
type RebuildResult struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// RebuildFacts loads all seven dimension tables, assembles the denormalized
// fact table, removes duplicate rows and replaces the persisted snapshot.
// Concurrent calls serialize; an interrupted rebuild leaves the previous
// snapshot in place.
//
// Every dimension must hold at least one row, otherwise the rebuild fails
// with an upstream-missing error naming the empty table.
func (s *Service) RebuildFacts(ctx context.Context) (*RebuildResult, error) {
	const op = "rebuild_facts"
	started := time.Now()

	factSpec := schema.Fact()
	unlock := s.rebuilds.lock(factSpec.Name)
	defer unlock()

	dims := make([]*table.Table, 0, etl.DimensionCount)
	for _, ent := range schema.Dimensions() {
		t, err := s.loadTable(ctx, op, ent.Table.Name, ent.Table.ColumnNames())
		if err != nil {
			s.observeStep(op, "error", started, nil)
			return nil, err
		}
		if t.NumRows() == 0 {
			s.observeStep(op, "upstream_missing", started, nil)
			return nil, etl.NewError(etl.KindUpstreamMissing, op,
				fmt.Sprintf("dimension table %s is empty; upload it first", ent.Table.Name))
		}
		dims = append(dims, t)
	}

	fact, err := etl.AssembleFacts(dims)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, err
	}
	fact, err = etl.Dedup(fact)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, err
	}

	rows, err := specRows(fact, factSpec)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, etl.WrapError(etl.KindInvalidInput, op, err)
	}

	written, err := s.repo.ReplaceRows(ctx, factSpec.Name, factSpec.ColumnNames(), rows)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, etl.WrapError(etl.KindPersistence, op, err)
	}

	s.metrics.IncCounter(metrics.RecordsTotal, float64(written), metrics.Labels{"entity": factSpec.Name})
	s.observeStep(op, "ok", started, nil)
	s.log.Printf("rebuild table=%s rows=%d took=%s", factSpec.Name, written, time.Since(started).Round(time.Millisecond))
	return &RebuildResult{Table: factSpec.Name, Rows: written}, nil
}

// RebuildTopSellers aggregates the persisted fact table into the ten sellers
// with the highest summed item price and replaces the top_sellers snapshot.
func (s *Service) RebuildTopSellers(ctx context.Context) (*RebuildResult, error) {
	const op = "rebuild_top_sellers"
	started := time.Now()

	topSpec := schema.TopSellers()
	unlock := s.rebuilds.lock(topSpec.Name)
	defer unlock()

	factSpec := schema.Fact()
	fact, err := s.loadTable(ctx, op, factSpec.Name, factSpec.ColumnNames())
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, err
	}
	if fact.NumRows() == 0 {
		s.observeStep(op, "upstream_missing", started, nil)
		return nil, etl.NewError(etl.KindUpstreamMissing, op,
			"fact table is empty; rebuild it first")
	}

	top, err := etl.TopSellers(fact, etl.DefaultTopSellerLimit)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, err
	}

	rows, err := specRows(top, topSpec)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, etl.WrapError(etl.KindInvalidInput, op, err)
	}

	written, err := s.repo.ReplaceRows(ctx, topSpec.Name, topSpec.ColumnNames(), rows)
	if err != nil {
		s.observeStep(op, "error", started, nil)
		return nil, etl.WrapError(etl.KindPersistence, op, err)
	}

	s.metrics.IncCounter(metrics.RecordsTotal, float64(written), metrics.Labels{"entity": topSpec.Name})
	s.observeStep(op, "ok", started, nil)
	s.log.Printf("rebuild table=%s rows=%d took=%s", topSpec.Name, written, time.Since(started).Round(time.Millisecond))
	return &RebuildResult{Table: topSpec.Name, Rows: written}, nil
}

// loadTable reads a whole persisted table back into the columnar form the
// transforms consume.
func (s *Service) loadTable(ctx context.Context, op, name string, columns []string) (*table.Table, error) {
	rows, err := s.repo.SelectRows(ctx, name, columns)
	if err != nil {
		return nil, etl.WrapError(etl.KindPersistence, op, err)
	}
	if len(rows) == 0 {
		// Materialize rejects zero rows; empty tables are the caller's
		// decision to make.
		return table.New(emptyColumns(columns)...)
	}
	t, err := etl.Materialize(columns, rows)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func emptyColumns(names []string) []table.Column {
	cols := make([]table.Column, len(names))
	for i, n := range names {
		cols[i] = table.Column{Name: n, Values: nil}
	}
	return cols
}
