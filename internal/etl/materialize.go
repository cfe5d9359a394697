package etl

import (
	"fmt"

	"ordersetl/internal/table"
)

// Materialize rebuilds a columnar table from row-major records read back from
// the store. columns names the record schema in order; every record must have
// exactly that many fields.
//
// The result always carries a freshly assigned surrogate id: any id value the
// records brought along from persistence is discarded so that downstream
// joins see a contiguous local numbering.
//
// Outcomes:
//   - no columns or no records: KindInvalidInput
//   - ragged records: KindInvalidInput
func Materialize(columns []string, records [][]any) (*table.Table, error) {
	const op = "materialize"

	if len(columns) == 0 {
		return nil, newError(KindInvalidInput, op, "no columns declared")
	}
	if len(records) == 0 {
		return nil, newError(KindInvalidInput, op, "no records")
	}

	cols := make([]table.Column, len(columns))
	for c, name := range columns {
		cols[c] = table.Column{Name: name, Values: make([]any, len(records))}
	}

	for r, rec := range records {
		if len(rec) != len(columns) {
			return nil, newError(KindInvalidInput, op,
				fmt.Sprintf("record %d has %d fields, want %d", r, len(rec), len(columns)))
		}
		for c := range columns {
			cols[c].Values[r] = rec[c]
		}
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	return AssignID(t)
}
