package etl

import (
	"fmt"
	"strconv"
	"strings"

	"ordersetl/internal/table"
)

// rightSuffix disambiguates non-key column collisions in a join: the right
// side keeps its value under "<name>_right". Join key columns are taken from
// the left side only.
const rightSuffix = "_right"

// keyString produces the canonical string form of a join key value; the
// string form only exists so values can key a hash map. Equality is exact
// value equality as stored: the loaders trim every cell before anything is
// persisted, so the trim on string forms here cannot merge keys that were
// stored distinct. A loader that stops trimming must keep this in step.
func keyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// rowKey builds the composite hash key for one row over the given columns.
// Returns ok=false when any key component is nil/blank; such rows can never
// match and are dropped by the inner join.
func rowKey(cols []table.Column, row int) (string, bool) {
	var b strings.Builder
	for i, c := range cols {
		k := keyString(c.Values[row])
		if k == "" {
			return "", false
		}
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(k)
	}
	return b.String(), true
}

// innerJoin hash-joins left and right on the named key columns. Rows without
// a match on both sides are dropped. Output row order is left-major: left
// rows in their original order, each expanded by its matches in right order.
//
// Output columns: all left columns, then right columns minus the join keys;
// a right column whose name collides with a left column is suffixed with
// rightSuffix.
func innerJoin(left, right *table.Table, on ...string) (*table.Table, error) {
	leftKeys := make([]table.Column, 0, len(on))
	rightKeys := make([]table.Column, 0, len(on))
	for _, k := range on {
		lc, ok := left.Column(k)
		if !ok {
			return nil, fmt.Errorf("join: left table has no column %q", k)
		}
		rc, ok := right.Column(k)
		if !ok {
			return nil, fmt.Errorf("join: right table has no column %q", k)
		}
		leftKeys = append(leftKeys, lc)
		rightKeys = append(rightKeys, rc)
	}

	// Hash the right side, preserving row order per key.
	byKey := make(map[string][]int, right.NumRows())
	for r := 0; r < right.NumRows(); r++ {
		k, ok := rowKey(rightKeys, r)
		if !ok {
			continue
		}
		byKey[k] = append(byKey[k], r)
	}

	// Pair up (leftRow, rightRow) matches in output order.
	var lrows, rrows []int
	for l := 0; l < left.NumRows(); l++ {
		k, ok := rowKey(leftKeys, l)
		if !ok {
			continue
		}
		for _, r := range byKey[k] {
			lrows = append(lrows, l)
			rrows = append(rrows, r)
		}
	}

	skipRight := make(map[string]struct{}, len(on))
	for _, k := range on {
		skipRight[k] = struct{}{}
	}

	out := make([]table.Column, 0, left.NumCols()+right.NumCols()-len(on))
	for _, c := range left.Columns() {
		out = append(out, gatherColumn(c.Name, c.Values, lrows))
	}
	for _, c := range right.Columns() {
		if _, ok := skipRight[c.Name]; ok {
			continue
		}
		name := c.Name
		if left.Has(name) {
			name += rightSuffix
		}
		out = append(out, gatherColumn(name, c.Values, rrows))
	}

	return table.New(out...)
}

func gatherColumn(name string, src []any, rows []int) table.Column {
	vals := make([]any, len(rows))
	for i, r := range rows {
		vals[i] = src[r]
	}
	return table.Column{Name: name, Values: vals}
}
