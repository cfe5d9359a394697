package etl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ordersetl/internal/table"
)

// DefaultTopSellerLimit caps the top-seller aggregate.
const DefaultTopSellerLimit = 10

// TopSellers groups fact rows by seller_id, sums price into total_sales,
// ranks descending and keeps the top n groups (n <= 0 means the default 10).
// Ties rank in first-encounter order of the seller in the input: the sort is
// stable over the grouping order. The result has a fresh id 1..k and the
// fixed column order (id, seller_id, total_sales).
//
// Outcomes:
//   - nil table: KindInvalidInput
//   - zero rows: KindEmptyInput
//   - missing seller_id or price column, or non-numeric price: KindInvalidInput
func TopSellers(fact *table.Table, n int) (*table.Table, error) {
	const op = "top_sellers"

	if fact == nil {
		return nil, newError(KindInvalidInput, op, "nil table")
	}
	if fact.NumRows() == 0 {
		return nil, newError(KindEmptyInput, op, "fact table has no rows")
	}
	sellerCol, ok := fact.Column("seller_id")
	if !ok {
		return nil, newError(KindInvalidInput, op, "no seller_id column")
	}
	priceCol, ok := fact.Column("price")
	if !ok {
		return nil, newError(KindInvalidInput, op, "no price column")
	}
	if n <= 0 {
		n = DefaultTopSellerLimit
	}

	type group struct {
		seller any
		total  float64
	}

	byKey := make(map[string]int, 64)
	groups := make([]group, 0, 64)
	for r := 0; r < fact.NumRows(); r++ {
		k := keyString(sellerCol.Values[r])
		// Null prices contribute zero, like a SQL sum.
		var v float64
		if raw := priceCol.Values[r]; raw != nil {
			var err error
			v, err = toFloat(raw)
			if err != nil {
				return nil, wrapError(KindInvalidInput, op, fmt.Errorf("price at row %d: %w", r, err))
			}
		}
		if i, seen := byKey[k]; seen {
			groups[i].total += v
			continue
		}
		byKey[k] = len(groups)
		groups = append(groups, group{seller: sellerCol.Values[r], total: v})
	}

	// Stable: equal totals keep first-encounter order.
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].total > groups[j].total })
	if len(groups) > n {
		groups = groups[:n]
	}

	ids := make([]any, len(groups))
	sellers := make([]any, len(groups))
	totals := make([]any, len(groups))
	for i, g := range groups {
		ids[i] = int64(i + 1)
		sellers[i] = g.seller
		totals[i] = g.total
	}

	return table.New(
		table.Column{Name: IDColumn, Values: ids},
		table.Column{Name: "seller_id", Values: sellers},
		table.Column{Name: "total_sales", Values: totals},
	)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", t, err)
		}
		return f, nil
	case []byte:
		return toFloat(string(t))
	case nil:
		return 0, fmt.Errorf("nil value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
