package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ordersetl/internal/storage"
)

// CoerceValue converts a loader cell (usually a string, possibly nil) to the
// Go representation matching the column's logical type: bigint → int64,
// double precision → float64, text/timestamptz → string. nil passes through
// untouched.
//
// Integer columns accept float-shaped strings like "1017.0" as long as the
// value is whole; spreadsheet exports produce those for whole numbers.
func CoerceValue(col storage.ColumnSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch col.Type {
	case storage.TypeBigint:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int:
			return int64(t), nil
		case float64:
			if t != float64(int64(t)) {
				return nil, fmt.Errorf("column %s: %v is not an integer", col.Name, t)
			}
			return int64(t), nil
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return nil, nil
			}
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || f != float64(int64(f)) {
				return nil, fmt.Errorf("column %s: %q is not an integer", col.Name, s)
			}
			return int64(f), nil
		default:
			return nil, fmt.Errorf("column %s: cannot coerce %T to bigint", col.Name, v)
		}

	case storage.TypeDouble:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case int:
			return float64(t), nil
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %q is not a number", col.Name, s)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("column %s: cannot coerce %T to double", col.Name, v)
		}

	case storage.TypeText, storage.TypeTimestamp:
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		case time.Time:
			// Rows read back from a timestamptz column arrive as time.Time.
			// All three drivers bind time.Time natively; flattening it to a
			// string here would produce a literal the column rejects.
			return t, nil
		default:
			return fmt.Sprint(v), nil
		}

	default:
		return nil, fmt.Errorf("column %s: unknown type %q", col.Name, col.Type)
	}
}

// CoerceRow converts one positional row aligned to the spec's columns.
func CoerceRow(spec storage.TableSpec, row []any) ([]any, error) {
	if len(row) != len(spec.Columns) {
		return nil, fmt.Errorf("table %s: row has %d values, want %d", spec.Name, len(row), len(spec.Columns))
	}
	out := make([]any, len(row))
	for i, col := range spec.Columns {
		v, err := CoerceValue(col, row[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
