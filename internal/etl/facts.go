package etl

import (
	"fmt"

	"ordersetl/internal/table"
)

// DimensionCount is the fixed number of dimension tables feeding the fact
// assembly.
const DimensionCount = 7

// AssembleFacts builds the denormalized fact table from exactly seven
// dimension tables, in this fixed order: orders, order_items, customers,
// order_payments, products, sellers, product_categories.
//
// Each input's surrogate id column is dropped first so the join cannot
// collide distinct local numberings, then five inner joins run in a fixed
// sequence:
//
//	orders        ⋈ order_items                                on order_id
//	              ⋈ customers                                  on customer_id
//	              ⋈ products{product_id,product_category_name} on product_id
//	              ⋈ sellers                                    on seller_id
//	              ⋈ product_categories                         on product_category_name
//
// Rows unmatched on either side of any join are dropped; that is a filter,
// not an error. The result carries a fresh surrogate id 1..N.
//
// Outcomes:
//   - wrong table count or nil element: KindArityMismatch
//   - structurally fine joins matching zero rows: KindJoinEmpty
func AssembleFacts(dims []*table.Table) (*table.Table, error) {
	const op = "assemble_facts"

	if len(dims) != DimensionCount {
		return nil, newError(KindArityMismatch, op,
			fmt.Sprintf("got %d tables, want %d", len(dims), DimensionCount))
	}
	for i, d := range dims {
		if d == nil {
			return nil, newError(KindArityMismatch, op, fmt.Sprintf("table %d is not a table", i))
		}
	}

	orders := dims[0].Drop(IDColumn)
	orderItems := dims[1].Drop(IDColumn)
	customers := dims[2].Drop(IDColumn)
	orderPayments := dims[3].Drop(IDColumn)
	products := dims[4].Drop(IDColumn)
	sellers := dims[5].Drop(IDColumn)
	categories := dims[6].Drop(IDColumn)

	// Order payments participate in the dimension contract but not in the
	// join chain; an order's payment rows would multiply item rows.
	_ = orderPayments

	productKeys, err := products.Select("product_id", "product_category_name")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}

	fact, err := innerJoin(orders, orderItems, "order_id")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	fact, err = innerJoin(fact, customers, "customer_id")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	fact, err = innerJoin(fact, productKeys, "product_id")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	fact, err = innerJoin(fact, sellers, "seller_id")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	fact, err = innerJoin(fact, categories, "product_category_name")
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}

	if fact.NumRows() == 0 {
		return nil, newError(KindJoinEmpty, op, "joins matched zero rows")
	}
	return AssignID(fact)
}
