// Package sqlite implements the storage.Repository interface on SQLite via
// the modernc.org/sqlite driver (pure Go, no cgo). It is the default backend:
// a single-file database is a good fit for a warehouse that is rebuilt from
// uploaded files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"ordersetl/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}

// insertBatchRows caps the rows per multi-row INSERT so the bound parameter
// count stays well under SQLite's limit even for the widest table.
const insertBatchRows = 200

type Repo struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Repo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: empty dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	// A single writer keeps OR IGNORE counts and snapshot swaps well defined.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() {
	_ = r.db.Close()
}

func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("sqlite: table spec without name")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("sqlite: table %s has no columns", t.Name)
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	for _, c := range t.Columns {
		def := fmt.Sprintf(`%s %s`, sqlIdent(c.Name), sqlType(c.Type))
		if c.Name == t.PrimaryKey {
			def += ` NOT NULL`
		}
		parts = append(parts, def)
	}
	if t.PrimaryKey != "" {
		parts = append(parts, fmt.Sprintf(`PRIMARY KEY (%s)`, sqlIdent(t.PrimaryKey)))
	}
	for _, c := range t.Constraints {
		if c.Kind != "unique" || len(c.Columns) == 0 {
			return "", fmt.Errorf("sqlite: table %s: unsupported constraint kind %q", t.Name, c.Kind)
		}
		parts = append(parts, fmt.Sprintf(`UNIQUE (%s)`, identList(c.Columns)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

// sqlType maps the logical column types to SQLite storage classes.
func sqlType(logical string) string {
	switch logical {
	case storage.TypeBigint:
		return "INTEGER"
	case storage.TypeDouble:
		return "REAL"
	default:
		// text and timestamps both land in TEXT.
		return "TEXT"
	}
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	verb := "INSERT"
	if len(conflictColumns) > 0 {
		// OR IGNORE rides on the table's unique constraint; RowsAffected then
		// counts only the rows actually written.
		verb = "INSERT OR IGNORE"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin insert into %s: %w", table, err)
	}
	defer tx.Rollback()

	inserted, err := insertBatched(ctx, tx, verb, table, columns, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit insert into %s: %w", table, err)
	}
	return inserted, nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin replace of %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, sqlIdent(table))); err != nil {
		return 0, fmt.Errorf("sqlite: clear %s: %w", table, err)
	}
	inserted, err := insertBatched(ctx, tx, "INSERT", table, columns, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit replace of %s: %w", table, err)
	}
	return inserted, nil
}

func insertBatched(ctx context.Context, tx *sql.Tx, verb, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: insert into %s: no columns", table)
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var total int64
	for start := 0; start < len(rows); start += insertBatchRows {
		end := start + insertBatchRows
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(columns))
		for i, row := range batch {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("sqlite: insert into %s: row has %d values, want %d", table, len(row), len(columns))
			}
			placeholders[i] = rowPlaceholder
			args = append(args, row...)
		}

		q := fmt.Sprintf(`%s INTO %s (%s) VALUES %s`,
			verb, sqlIdent(table), identList(columns), strings.Join(placeholders, ", "))
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert into %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func (r *Repo) SelectRows(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select from %s: %w", table, err)
	}
	defer rows.Close()
	return scanAll(rows, len(columns), table)
}

func (r *Repo) SelectFirstN(ctx context.Context, table string, columns []string, n int) ([][]any, int64, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT ?`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: select from %s: %w", table, err)
	}
	out, err := scanAll(rows, len(columns), table)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, sqlIdent(table))).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return out, count, nil
}

func scanAll(rows *sql.Rows, width int, table string) ([][]any, error) {
	var out [][]any
	for rows.Next() {
		vals := make([]any, width)
		ptrs := make([]any, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate %s: %w", table, err)
	}
	return out, nil
}

// sqlIdent quotes an identifier, doubling embedded quotes.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = sqlIdent(n)
	}
	return strings.Join(quoted, ", ")
}
