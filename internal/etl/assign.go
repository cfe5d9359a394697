// Package etl implements the transform pipeline: surrogate key assignment,
// dimension materialization, the fact table join, duplicate elimination and
// the top-seller aggregate. Every stage is a pure whole-table function; bad
// input surfaces as a classified *Error, never a panic.
package etl

import "ordersetl/internal/table"

// IDColumn is the surrogate key column maintained by the pipeline. It is a
// locally dense 1..N sequence assigned whenever a table is produced, distinct
// from the natural business keys and not globally unique across runs.
const IDColumn = "id"

// AssignID returns t with an int64 "id" column holding 1..N in row order.
// An existing id column is overwritten, which is how materialized dimensions
// are re-densified.
//
// Outcomes:
//   - nil table: KindInvalidInput
//   - zero rows: KindEmptyInput
func AssignID(t *table.Table) (*table.Table, error) {
	const op = "assign_id"

	if t == nil {
		return nil, newError(KindInvalidInput, op, "nil table")
	}
	n := t.NumRows()
	if n == 0 {
		return nil, newError(KindEmptyInput, op, "table has no rows")
	}

	ids := make([]any, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(i + 1)
	}

	out, err := t.WithColumn(IDColumn, ids)
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	return out, nil
}
