package postgres

import (
	"strings"
	"testing"

	"ordersetl/internal/storage"
)

func TestBuildCreateTableSQL(t *testing.T) {
	spec := storage.TableSpec{
		Name: "sellers",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeBigint},
			{Name: "seller_id", Type: storage.TypeText},
			{Name: "created_at", Type: storage.TypeTimestamp, Nullable: true},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"seller_id"}}},
	}
	got, err := buildCreateTableSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "sellers"`,
		`"id" bigint`,
		`"created_at" timestamptz`,
		`UNIQUE ("seller_id")`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("ddl missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "PRIMARY KEY") {
		t.Fatalf("no primary key expected:\n%s", got)
	}
}

func TestBuildCreateTableSQLPrimaryKey(t *testing.T) {
	spec := storage.TableSpec{
		Name:       "fact_table",
		PrimaryKey: "id",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeBigint},
			{Name: "price", Type: storage.TypeDouble, Nullable: true},
		},
	}
	got, err := buildCreateTableSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	if !strings.Contains(got, `"id" bigint NOT NULL`) || !strings.Contains(got, `PRIMARY KEY ("id")`) {
		t.Fatalf("ddl = %s", got)
	}
}

func TestBuildCreateTableSQLErrors(t *testing.T) {
	if _, err := buildCreateTableSQL(storage.TableSpec{Name: " "}); err == nil {
		t.Fatal("blank name: want error")
	}
	bad := storage.TableSpec{
		Name:        "t",
		Columns:     []storage.ColumnSpec{{Name: "a", Type: storage.TypeText}},
		Constraints: []storage.ConstraintSpec{{Kind: "check", Columns: []string{"a"}}},
	}
	if _, err := buildCreateTableSQL(bad); err == nil {
		t.Fatal("unsupported constraint: want error")
	}
}

func TestSQLIdentQuotesEmbeddedQuote(t *testing.T) {
	if got := sqlIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("sqlIdent = %s", got)
	}
}
