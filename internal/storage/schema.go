// TableSpec lives here so backend packages and the schema registry can both
// import it without circular deps.
package storage

// Logical column types. Backends translate these to their native SQL types.
const (
	TypeBigint    = "bigint"
	TypeDouble    = "double precision"
	TypeText      = "text"
	TypeTimestamp = "timestamptz"
)

type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`

	// PrimaryKey names the surrogate id column. Only snapshot tables (fact,
	// top sellers) set it: those are replaced wholesale on every rebuild, so
	// their ids are unique per snapshot. Dimension tables leave it empty
	// because ids restart at 1 for every uploaded file.
	PrimaryKey string `json:"primary_key,omitempty"`

	// Constraints is the set of unique constraints; the natural business key
	// goes here so inserts can be made idempotent at the database.
	Constraints []ConstraintSpec `json:"constraints,omitempty"`
}

type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

type ConstraintSpec struct {
	Kind    string   `json:"kind"` // "unique"
	Columns []string `json:"columns"`
}

// ColumnNames returns the spec's column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
