package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"ordersetl/internal/storage"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := New(context.Background(), filepath.Join(t.TempDir(), "etl.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

var sellersSpec = storage.TableSpec{
	Name: "sellers",
	Columns: []storage.ColumnSpec{
		{Name: "id", Type: storage.TypeBigint},
		{Name: "seller_id", Type: storage.TypeText},
		{Name: "seller_city", Type: storage.TypeText, Nullable: true},
	},
	Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"seller_id"}}},
}

func TestEnsureTablesIdempotent(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := r.EnsureTables(ctx, []storage.TableSpec{sellersSpec}); err != nil {
			t.Fatalf("EnsureTables pass %d: %v", i+1, err)
		}
	}
}

func TestInsertRowsConflictIgnore(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	if err := r.EnsureTables(ctx, []storage.TableSpec{sellersSpec}); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}

	cols := []string{"id", "seller_id", "seller_city"}
	rows := [][]any{
		{int64(1), "s1", "osasco"},
		{int64(2), "s2", nil},
	}
	n, err := r.InsertRows(ctx, "sellers", cols, rows, []string{"seller_id"})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	// Same natural keys again, plus one new row: only the new row lands.
	again := [][]any{
		{int64(1), "s1", "osasco"},
		{int64(2), "s2", nil},
		{int64(3), "s3", "curitiba"},
	}
	n, err = r.InsertRows(ctx, "sellers", cols, again, []string{"seller_id"})
	if err != nil {
		t.Fatalf("InsertRows again: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}

	got, err := r.SelectRows(ctx, "sellers", cols)
	if err != nil {
		t.Fatalf("SelectRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	if !reflect.DeepEqual(got[0], []any{int64(1), "s1", "osasco"}) {
		t.Fatalf("row 0 = %v", got[0])
	}
	if got[1][2] != nil {
		t.Fatalf("nil city round trip = %v", got[1][2])
	}
}

func TestReplaceRows(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	spec := storage.TableSpec{
		Name:       "top_sellers",
		PrimaryKey: "id",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeBigint},
			{Name: "seller_id", Type: storage.TypeText},
			{Name: "total_sales", Type: storage.TypeDouble},
		},
	}
	if err := r.EnsureTables(ctx, []storage.TableSpec{spec}); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	cols := []string{"id", "seller_id", "total_sales"}

	if _, err := r.ReplaceRows(ctx, "top_sellers", cols, [][]any{
		{int64(1), "old", 1.0},
		{int64(2), "stale", 2.0},
	}); err != nil {
		t.Fatalf("ReplaceRows seed: %v", err)
	}

	n, err := r.ReplaceRows(ctx, "top_sellers", cols, [][]any{
		{int64(1), "fresh", 99.5},
	})
	if err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}
	if n != 1 {
		t.Fatalf("replaced = %d, want 1", n)
	}

	got, err := r.SelectRows(ctx, "top_sellers", cols)
	if err != nil {
		t.Fatalf("SelectRows: %v", err)
	}
	if len(got) != 1 || got[0][1] != "fresh" || got[0][2] != 99.5 {
		t.Fatalf("rows = %v", got)
	}
}

func TestSelectFirstN(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	if err := r.EnsureTables(ctx, []storage.TableSpec{sellersSpec}); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	cols := []string{"id", "seller_id", "seller_city"}
	var rows [][]any
	for i := 1; i <= 7; i++ {
		rows = append(rows, []any{int64(i), "s" + string(rune('0'+i)), nil})
	}
	if _, err := r.InsertRows(ctx, "sellers", cols, rows, nil); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	got, total, err := r.SelectFirstN(ctx, "sellers", cols, 3)
	if err != nil {
		t.Fatalf("SelectFirstN: %v", err)
	}
	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	if len(got) != 3 {
		t.Fatalf("preview rows = %d, want 3", len(got))
	}
	if got[0][0] != int64(1) || got[2][0] != int64(3) {
		t.Fatalf("preview order: %v", got)
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	sqlText, err := buildCreateTableSQL(sellersSpec)
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"sellers\" (\n" +
		"  \"id\" INTEGER,\n" +
		"  \"seller_id\" TEXT,\n" +
		"  \"seller_city\" TEXT,\n" +
		"  UNIQUE (\"seller_id\")\n" +
		")"
	if sqlText != want {
		t.Fatalf("sql = %s", sqlText)
	}
}
