package etl

import (
	"reflect"
	"testing"

	"ordersetl/internal/table"
)

func mustTable(t *testing.T, cols ...table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(cols...)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func idValues(t *testing.T, tbl *table.Table) []any {
	t.Helper()
	c, ok := tbl.Column(IDColumn)
	if !ok {
		t.Fatalf("no %s column", IDColumn)
	}
	return c.Values
}

func TestAssignIDDense(t *testing.T) {
	tbl := mustTable(t, table.Column{Name: "name", Values: []any{"Ayomide", "Corper", "James"}})

	out, err := AssignID(tbl)
	if err != nil {
		t.Fatalf("AssignID: %v", err)
	}
	if got := idValues(t, out); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Fatalf("ids = %v", got)
	}
	// The id column is appended after existing columns.
	if got := out.Names(); !reflect.DeepEqual(got, []string{"name", IDColumn}) {
		t.Fatalf("names = %v", got)
	}
}

func TestAssignIDOverwritesExisting(t *testing.T) {
	tbl := mustTable(t,
		table.Column{Name: IDColumn, Values: []any{int64(7), int64(9)}},
		table.Column{Name: "name", Values: []any{"a", "b"}},
	)

	out, err := AssignID(tbl)
	if err != nil {
		t.Fatalf("AssignID: %v", err)
	}
	if got := idValues(t, out); !reflect.DeepEqual(got, []any{int64(1), int64(2)}) {
		t.Fatalf("ids = %v", got)
	}
	// Overwrite keeps the column position.
	if got := out.Names(); !reflect.DeepEqual(got, []string{IDColumn, "name"}) {
		t.Fatalf("names = %v", got)
	}
}

func TestAssignIDErrors(t *testing.T) {
	if _, err := AssignID(nil); !IsInvalidInput(err) {
		t.Fatalf("nil table: err = %v", err)
	}

	empty := mustTable(t, table.Column{Name: "name"})
	if _, err := AssignID(empty); !IsEmptyInput(err) {
		t.Fatalf("empty table: err = %v", err)
	}
}

func TestMaterializeRoundTrip(t *testing.T) {
	cols := []string{"id", "name", "age"}
	recs := [][]any{
		{int64(5), "Ayomide", int64(31)},
		{int64(6), "Corper", int64(22)},
		{int64(7), "James", int64(40)},
	}

	out, err := Materialize(cols, recs)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("rows = %d", out.NumRows())
	}
	// Persisted ids are discarded and re-densified.
	if got := idValues(t, out); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Fatalf("ids = %v", got)
	}
	if v, _ := out.Value("name", 2); v != "James" {
		t.Fatalf("name[2] = %v", v)
	}
}

func TestMaterializeErrors(t *testing.T) {
	cases := []struct {
		name string
		cols []string
		recs [][]any
	}{
		{"no columns", nil, [][]any{{1}}},
		{"no records", []string{"a"}, nil},
		{"ragged record", []string{"a", "b"}, [][]any{{1, 2}, {3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Materialize(tc.cols, tc.recs); !IsInvalidInput(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
