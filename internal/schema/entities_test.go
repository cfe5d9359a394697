package schema

import (
	"reflect"
	"testing"
)

func TestDimensionsOrder(t *testing.T) {
	var keys []string
	for _, e := range Dimensions() {
		keys = append(keys, e.Key)
	}
	want := []string{
		"orders", "order_items", "customers", "order_payments",
		"products", "sellers", "product_categories",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("dimension order = %v", keys)
	}
}

func TestByKey(t *testing.T) {
	ent, ok := ByKey("sellers")
	if !ok {
		t.Fatal("sellers not found")
	}
	if ent.Table.Name != "sellers" {
		t.Fatalf("table = %s", ent.Table.Name)
	}

	// The product_categories entity persists to the singular table name.
	ent, ok = ByKey("product_categories")
	if !ok {
		t.Fatal("product_categories not found")
	}
	if ent.Table.Name != "product_category" {
		t.Fatalf("table = %s", ent.Table.Name)
	}

	if _, ok := ByKey("fact_table"); ok {
		t.Fatal("fact_table is not a dimension")
	}
}

func TestRequiredUploadColumnsExcludeID(t *testing.T) {
	ent, _ := ByKey("orders")
	cols := ent.RequiredUploadColumns()
	for _, c := range cols {
		if c == "id" {
			t.Fatal("id must not be a required upload column")
		}
	}
	want := []string{
		"order_id", "customer_id", "order_status",
		"order_purchase_timestamp", "order_approved_at",
		"order_delivered_carrier_date", "order_delivered_customer_date",
		"order_estimated_delivery_date",
	}
	if !reflect.DeepEqual(cols, want) {
		t.Fatalf("orders upload columns = %v", cols)
	}
}

func TestDimensionConstraints(t *testing.T) {
	for _, e := range Dimensions() {
		if e.Table.PrimaryKey != "" {
			t.Errorf("%s: dimension tables must not key on the surrogate id", e.Key)
		}
		if len(e.Table.Constraints) != 1 || e.Table.Constraints[0].Kind != "unique" {
			t.Errorf("%s: want exactly one unique constraint", e.Key)
			continue
		}
		if !reflect.DeepEqual(e.Table.Constraints[0].Columns, e.NaturalKey) {
			t.Errorf("%s: constraint %v != natural key %v",
				e.Key, e.Table.Constraints[0].Columns, e.NaturalKey)
		}
	}
}

func TestSnapshotTables(t *testing.T) {
	fact := Fact()
	if fact.PrimaryKey != "id" || len(fact.Constraints) != 0 {
		t.Fatalf("fact spec: pk=%q constraints=%v", fact.PrimaryKey, fact.Constraints)
	}
	if got := len(fact.Columns); got != 24 {
		t.Fatalf("fact columns = %d", got)
	}

	top := TopSellers()
	if got := top.ColumnNames(); !reflect.DeepEqual(got, []string{"id", "seller_id", "total_sales"}) {
		t.Fatalf("top seller columns = %v", got)
	}
}

func TestAllTables(t *testing.T) {
	tables := AllTables()
	if len(tables) != 9 {
		t.Fatalf("tables = %d, want 7 dimensions + fact + top sellers", len(tables))
	}
	seen := map[string]bool{}
	for _, spec := range tables {
		if seen[spec.Name] {
			t.Fatalf("duplicate table %s", spec.Name)
		}
		seen[spec.Name] = true
	}
}
