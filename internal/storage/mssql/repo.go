// Package mssql implements the storage.Repository interface on SQL Server via
// the microsoft/go-mssqldb driver. SQL Server has no INSERT OR IGNORE, so
// idempotent ingest runs per-row inserts guarded by NOT EXISTS inside one
// transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"ordersetl/internal/storage"
)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}

const insertBatchRows = 200

type Repo struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Repo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mssql: empty dsn")
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
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
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("mssql: table spec without name")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("mssql: table %s has no columns", t.Name)
	}

	// Columns that participate in a unique constraint cannot be NVARCHAR(MAX);
	// they get a bounded width instead.
	keyed := map[string]bool{}
	for _, c := range t.Constraints {
		for _, name := range c.Columns {
			keyed[name] = true
		}
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	for _, c := range t.Columns {
		def := fmt.Sprintf(`%s %s`, sqlIdent(c.Name), sqlType(c.Type, keyed[c.Name]))
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
			return "", fmt.Errorf("mssql: table %s: unsupported constraint kind %q", t.Name, c.Kind)
		}
		parts = append(parts, fmt.Sprintf(`UNIQUE (%s)`, identList(c.Columns)))
	}

	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n)",
		strings.ReplaceAll(t.Name, `'`, `''`), sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func sqlType(logical string, keyed bool) string {
	switch logical {
	case storage.TypeBigint:
		return "BIGINT"
	case storage.TypeDouble:
		return "FLOAT"
	default:
		if keyed {
			return "NVARCHAR(450)"
		}
		return "NVARCHAR(MAX)"
	}
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin insert into %s: %w", table, err)
	}
	defer tx.Rollback()

	var inserted int64
	if len(conflictColumns) > 0 {
		inserted, err = insertGuarded(ctx, tx, table, columns, rows, conflictColumns)
	} else {
		inserted, err = insertBatched(ctx, tx, table, columns, rows)
	}
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit insert into %s: %w", table, err)
	}
	return inserted, nil
}

// insertGuarded inserts one row at a time with a NOT EXISTS filter on the
// conflict columns, so re-ingesting the same file writes nothing.
func insertGuarded(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	colIdx := map[string]int{}
	for i, c := range columns {
		colIdx[c] = i
	}
	guards := make([]string, len(conflictColumns))
	for i, c := range conflictColumns {
		if _, ok := colIdx[c]; !ok {
			return 0, fmt.Errorf("mssql: insert into %s: conflict column %q not in insert columns", table, c)
		}
		guards[i] = fmt.Sprintf(`%s = @p%d`, sqlIdent(c), len(columns)+i+1)
	}

	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = fmt.Sprintf("@p%d", i+1)
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s WHERE NOT EXISTS (SELECT 1 FROM %s WHERE %s)`,
		sqlIdent(table), identList(columns), strings.Join(ph, ", "), sqlIdent(table), strings.Join(guards, " AND "))

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var total int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("mssql: insert into %s: row has %d values, want %d", table, len(row), len(columns))
		}
		args := make([]any, 0, len(row)+len(conflictColumns))
		args = append(args, row...)
		for _, c := range conflictColumns {
			args = append(args, row[colIdx[c]])
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("mssql: insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mssql: insert into %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func insertBatched(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mssql: insert into %s: no columns", table)
	}

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
				return 0, fmt.Errorf("mssql: insert into %s: row has %d values, want %d", table, len(row), len(columns))
			}
			ph := make([]string, len(columns))
			for j := range columns {
				ph[j] = fmt.Sprintf("@p%d", i*len(columns)+j+1)
			}
			placeholders[i] = "(" + strings.Join(ph, ", ") + ")"
			args = append(args, row...)
		}

		q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s`,
			sqlIdent(table), identList(columns), strings.Join(placeholders, ", "))
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("mssql: insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mssql: insert into %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin replace of %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, sqlIdent(table))); err != nil {
		return 0, fmt.Errorf("mssql: clear %s: %w", table, err)
	}
	inserted, err := insertBatched(ctx, tx, table, columns, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit replace of %s: %w", table, err)
	}
	return inserted, nil
}

func (r *Repo) SelectRows(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("mssql: select from %s: %w", table, err)
	}
	defer rows.Close()
	return scanAll(rows, len(columns), table)
}

func (r *Repo) SelectFirstN(ctx context.Context, table string, columns []string, n int) ([][]any, int64, error) {
	q := fmt.Sprintf(`SELECT TOP (@p1) %s FROM %s ORDER BY %s`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, 0, fmt.Errorf("mssql: select from %s: %w", table, err)
	}
	out, err := scanAll(rows, len(columns), table)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT_BIG(*) FROM %s`, sqlIdent(table))).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("mssql: count %s: %w", table, err)
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
			return nil, fmt.Errorf("mssql: scan %s: %w", table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mssql: iterate %s: %w", table, err)
	}
	return out, nil
}

// sqlIdent quotes an identifier with brackets, escaping closing brackets.
func sqlIdent(name string) string {
	return `[` + strings.ReplaceAll(name, `]`, `]]`) + `]`
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = sqlIdent(n)
	}
	return strings.Join(quoted, ", ")
}
