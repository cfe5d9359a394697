// Package postgres implements the storage.Repository interface on PostgreSQL
// via jackc/pgx. Idempotent ingest uses ON CONFLICT DO NOTHING against the
// natural-key unique constraint.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ordersetl/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}

const insertBatchRows = 500

type Repo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Repo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("postgres: table spec without name")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("postgres: table %s has no columns", t.Name)
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
			return "", fmt.Errorf("postgres: table %s: unsupported constraint kind %q", t.Name, c.Kind)
		}
		parts = append(parts, fmt.Sprintf(`UNIQUE (%s)`, identList(c.Columns)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func sqlType(logical string) string {
	// The logical type names are already valid PostgreSQL types.
	switch logical {
	case storage.TypeBigint, storage.TypeDouble, storage.TypeText, storage.TypeTimestamp:
		return logical
	default:
		return storage.TypeText
	}
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	suffix := ""
	if len(conflictColumns) > 0 {
		suffix = fmt.Sprintf(` ON CONFLICT (%s) DO NOTHING`, identList(conflictColumns))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin insert into %s: %w", table, err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertBatched(ctx, tx, table, columns, rows, suffix)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit insert into %s: %w", table, err)
	}
	return inserted, nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin replace of %s: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, sqlIdent(table))); err != nil {
		return 0, fmt.Errorf("postgres: clear %s: %w", table, err)
	}
	inserted, err := insertBatched(ctx, tx, table, columns, rows, "")
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit replace of %s: %w", table, err)
	}
	return inserted, nil
}

func insertBatched(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any, suffix string) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: insert into %s: no columns", table)
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
				return 0, fmt.Errorf("postgres: insert into %s: row has %d values, want %d", table, len(row), len(columns))
			}
			ph := make([]string, len(columns))
			for j := range columns {
				ph[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
			}
			placeholders[i] = "(" + strings.Join(ph, ", ") + ")"
			args = append(args, row...)
		}

		q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s%s`,
			sqlIdent(table), identList(columns), strings.Join(placeholders, ", "), suffix)
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("postgres: insert into %s: %w", table, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (r *Repo) SelectRows(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: select from %s: %w", table, err)
	}
	defer rows.Close()
	return scanAll(rows, table)
}

func (r *Repo) SelectFirstN(ctx context.Context, table string, columns []string, n int) ([][]any, int64, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT $1`, identList(columns), sqlIdent(table), sqlIdent("id"))
	rows, err := r.pool.Query(ctx, q, n)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: select from %s: %w", table, err)
	}
	out, err := scanAll(rows, table)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	var count int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, sqlIdent(table))).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return out, count, nil
}

func scanAll(rows pgx.Rows, table string) ([][]any, error) {
	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", table, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate %s: %w", table, err)
	}
	return out, nil
}

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
