package etl

import (
	"reflect"
	"testing"

	"ordersetl/internal/table"
)

func TestInnerJoinBasics(t *testing.T) {
	left := mustTable(t,
		table.Column{Name: "k", Values: []any{"a", "b", "c"}},
		table.Column{Name: "lv", Values: []any{1, 2, 3}},
	)
	right := mustTable(t,
		table.Column{Name: "k", Values: []any{"b", "a"}},
		table.Column{Name: "rv", Values: []any{20, 10}},
	)

	out, err := innerJoin(left, right, "k")
	if err != nil {
		t.Fatalf("innerJoin: %v", err)
	}
	// Left-major order, unmatched "c" dropped, key column kept once.
	if got := out.Names(); !reflect.DeepEqual(got, []string{"k", "lv", "rv"}) {
		t.Fatalf("names = %v", got)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d", out.NumRows())
	}
	if got := out.Row(0); !reflect.DeepEqual(got, []any{"a", 1, 10}) {
		t.Fatalf("row 0 = %v", got)
	}
	if got := out.Row(1); !reflect.DeepEqual(got, []any{"b", 2, 20}) {
		t.Fatalf("row 1 = %v", got)
	}
}

func TestInnerJoinDuplicateRightRowsExpand(t *testing.T) {
	left := mustTable(t,
		table.Column{Name: "k", Values: []any{"a"}},
		table.Column{Name: "lv", Values: []any{1}},
	)
	right := mustTable(t,
		table.Column{Name: "k", Values: []any{"a", "a"}},
		table.Column{Name: "rv", Values: []any{10, 11}},
	)

	out, err := innerJoin(left, right, "k")
	if err != nil {
		t.Fatalf("innerJoin: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d", out.NumRows())
	}
	// Matches come in right-side row order.
	if v, _ := out.Value("rv", 0); v != 10 {
		t.Fatalf("rv[0] = %v", v)
	}
	if v, _ := out.Value("rv", 1); v != 11 {
		t.Fatalf("rv[1] = %v", v)
	}
}

func TestInnerJoinCollisionSuffix(t *testing.T) {
	left := mustTable(t,
		table.Column{Name: "k", Values: []any{"a"}},
		table.Column{Name: "city", Values: []any{"left city"}},
	)
	right := mustTable(t,
		table.Column{Name: "k", Values: []any{"a"}},
		table.Column{Name: "city", Values: []any{"right city"}},
	)

	out, err := innerJoin(left, right, "k")
	if err != nil {
		t.Fatalf("innerJoin: %v", err)
	}
	if got := out.Names(); !reflect.DeepEqual(got, []string{"k", "city", "city_right"}) {
		t.Fatalf("names = %v", got)
	}
	if v, _ := out.Value("city", 0); v != "left city" {
		t.Fatalf("city = %v", v)
	}
	if v, _ := out.Value("city_right", 0); v != "right city" {
		t.Fatalf("city_right = %v", v)
	}
}

func TestInnerJoinBlankKeysNeverMatch(t *testing.T) {
	left := mustTable(t,
		table.Column{Name: "k", Values: []any{nil, "", "x"}},
		table.Column{Name: "lv", Values: []any{1, 2, 3}},
	)
	right := mustTable(t,
		table.Column{Name: "k", Values: []any{nil, "", "x"}},
		table.Column{Name: "rv", Values: []any{10, 20, 30}},
	)

	out, err := innerJoin(left, right, "k")
	if err != nil {
		t.Fatalf("innerJoin: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("rows = %d, want only the x match", out.NumRows())
	}
	if v, _ := out.Value("rv", 0); v != 30 {
		t.Fatalf("rv = %v", v)
	}
}

func TestInnerJoinMissingKeyColumn(t *testing.T) {
	left := mustTable(t, table.Column{Name: "k", Values: []any{"a"}})
	right := mustTable(t, table.Column{Name: "other", Values: []any{"a"}})

	if _, err := innerJoin(left, right, "k"); err == nil {
		t.Fatal("expected error for missing right key column")
	}
	if _, err := innerJoin(right, left, "k"); err == nil {
		t.Fatal("expected error for missing left key column")
	}
}

func TestKeyStringCanonicalForms(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  padded  ", "padded"},
		{[]byte("bytes"), "bytes"},
		{42, "42"},
		{int64(42), "42"},
		{3.5, "3.5"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := keyString(tc.in); got != tc.want {
			t.Errorf("keyString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
