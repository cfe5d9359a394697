package etl

import (
	"strings"

	"ordersetl/internal/table"
)

// Dedup removes rows that are value-identical duplicates of an earlier row,
// comparing every column including the surrogate id. The first occurrence
// survives. Surviving ids are NOT re-densified: gaps keep each row traceable
// to the assembly step that produced it.
//
// Outcomes:
//   - nil table: KindInvalidInput
func Dedup(t *table.Table) (*table.Table, error) {
	const op = "dedup"

	if t == nil {
		return nil, newError(KindInvalidInput, op, "nil table")
	}

	cols := t.Columns()
	n := t.NumRows()

	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	var b strings.Builder
	for r := 0; r < n; r++ {
		b.Reset()
		for c := range cols {
			if c > 0 {
				b.WriteByte(0x1f)
			}
			b.WriteString(keyString(cols[c].Values[r]))
		}
		fp := b.String()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		keep = append(keep, r)
	}

	if len(keep) == n {
		return t, nil
	}

	out := make([]table.Column, len(cols))
	for c := range cols {
		out[c] = gatherColumn(cols[c].Name, cols[c].Values, keep)
	}
	res, err := table.New(out...)
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, err)
	}
	return res, nil
}
