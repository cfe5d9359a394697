package etl

import (
	"reflect"
	"testing"

	"ordersetl/internal/table"
)

// factFixture builds seven small dimensions with full referential overlap:
// two orders, three items, everything resolvable through the join chain.
func factFixture(t *testing.T) []*table.Table {
	t.Helper()

	orders := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2)}},
		table.Column{Name: "order_id", Values: []any{"o1", "o2"}},
		table.Column{Name: "customer_id", Values: []any{"c1", "c2"}},
		table.Column{Name: "order_status", Values: []any{"delivered", "shipped"}},
	)
	orderItems := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2), int64(3)}},
		table.Column{Name: "order_id", Values: []any{"o1", "o1", "o2"}},
		table.Column{Name: "order_item_id", Values: []any{int64(1), int64(2), int64(1)}},
		table.Column{Name: "product_id", Values: []any{"p1", "p2", "p1"}},
		table.Column{Name: "seller_id", Values: []any{"s1", "s2", "s1"}},
		table.Column{Name: "price", Values: []any{10.0, 20.0, 30.0}},
	)
	customers := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2)}},
		table.Column{Name: "customer_id", Values: []any{"c1", "c2"}},
		table.Column{Name: "customer_city", Values: []any{"lagos", "abuja"}},
	)
	orderPayments := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1)}},
		table.Column{Name: "order_id", Values: []any{"o1"}},
		table.Column{Name: "payment_value", Values: []any{99.0}},
	)
	products := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2)}},
		table.Column{Name: "product_id", Values: []any{"p1", "p2"}},
		table.Column{Name: "product_category_name", Values: []any{"beleza", "pet_shop"}},
		table.Column{Name: "product_weight_g", Values: []any{int64(100), int64(200)}},
	)
	sellers := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2)}},
		table.Column{Name: "seller_id", Values: []any{"s1", "s2"}},
		table.Column{Name: "seller_city", Values: []any{"recife", "sao paulo"}},
	)
	categories := mustTable(t,
		table.Column{Name: "id", Values: []any{int64(1), int64(2)}},
		table.Column{Name: "product_category_name", Values: []any{"beleza", "pet_shop"}},
		table.Column{Name: "product_category_name_english", Values: []any{"health_beauty", "pet_shop"}},
	)

	return []*table.Table{orders, orderItems, customers, orderPayments, products, sellers, categories}
}

func TestAssembleFactsFullOverlap(t *testing.T) {
	fact, err := AssembleFacts(factFixture(t))
	if err != nil {
		t.Fatalf("AssembleFacts: %v", err)
	}

	// One fact row per order item.
	if fact.NumRows() != 3 {
		t.Fatalf("rows = %d", fact.NumRows())
	}

	want := []string{
		"order_id", "customer_id", "order_status",
		"order_item_id", "product_id", "seller_id", "price",
		"customer_city",
		"product_category_name",
		"seller_city",
		"product_category_name_english",
		"id",
	}
	if got := fact.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v\nwant    %v", got, want)
	}

	// Fresh dense ids, not the dimension ids.
	if got := idValues(t, fact); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Fatalf("ids = %v", got)
	}

	// Spot-check the denormalized row for o1's second item.
	if v, _ := fact.Value("product_category_name_english", 1); v != "pet_shop" {
		t.Fatalf("category_english[1] = %v", v)
	}
	if v, _ := fact.Value("seller_city", 1); v != "sao paulo" {
		t.Fatalf("seller_city[1] = %v", v)
	}
	if v, _ := fact.Value("customer_city", 2); v != "abuja" {
		t.Fatalf("customer_city[2] = %v", v)
	}

	// The projection keeps only the product join columns.
	if fact.Has("product_weight_g") {
		t.Fatal("product_weight_g leaked into the fact table")
	}
}

func TestAssembleFactsUnmatchedRowsAreFiltered(t *testing.T) {
	dims := factFixture(t)

	// Point one item at a product nobody knows.
	items := dims[1]
	prodCol, _ := items.Column("product_id")
	vals := append([]any(nil), prodCol.Values...)
	vals[1] = "ghost"
	patched, err := items.WithColumn("product_id", vals)
	if err != nil {
		t.Fatalf("WithColumn: %v", err)
	}
	dims[1] = patched

	fact, err := AssembleFacts(dims)
	if err != nil {
		t.Fatalf("AssembleFacts: %v", err)
	}
	if fact.NumRows() != 2 {
		t.Fatalf("rows = %d, want unmatched item dropped", fact.NumRows())
	}
}

func TestAssembleFactsJoinEmpty(t *testing.T) {
	dims := factFixture(t)

	// Sellers that match nothing starve the chain at step four.
	dims[5] = mustTable(t,
		table.Column{Name: "seller_id", Values: []any{"nobody"}},
		table.Column{Name: "seller_city", Values: []any{"nowhere"}},
	)

	_, err := AssembleFacts(dims)
	if !IsJoinEmpty(err) {
		t.Fatalf("err = %v, want join-empty", err)
	}
}

func TestAssembleFactsArity(t *testing.T) {
	dims := factFixture(t)

	if _, err := AssembleFacts(dims[:6]); !IsArityMismatch(err) {
		t.Fatalf("short slice: err = %v", err)
	}

	dims[3] = nil
	if _, err := AssembleFacts(dims); !IsArityMismatch(err) {
		t.Fatalf("nil element: err = %v", err)
	}
}
