package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Row is one stored record as it sits in the table: the key, the encoded
// value, and the expiry instant in unix seconds (NeverExpires for none).
type Row struct {
	Key   string
	Value string
	Exp   int64
}

// Table accesses one key-value table. The identifier is baked in at
// construction; every method takes the Queryer to run against, which is
// how statements join (or don't join) a transaction.
type Table struct {
	name Ident
}

// NewTable wraps a validated identifier.
func NewTable(name Ident) Table {
	return Table{name: name}
}

// Name returns the table identifier.
func (t Table) Name() string { return string(t.name) }

// Create provisions the table and its expiry index. The partial index
// skips the never-expires sentinel so sweeps and existence checks only
// touch records that can actually expire.
func (t Table) Create(ctx context.Context, q Queryer) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		exp   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS %[1]s_exp_idx ON %[1]s (exp) WHERE exp != -1;`, t.name)

	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, Classify(err))
	}
	return nil
}

// Get does a point lookup. The second return is false when the key is
// absent; expiry is not evaluated here.
func (t Table) Get(ctx context.Context, q Queryer, key string) (Row, bool, error) {
	r := Row{Key: key}
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value, exp FROM %s WHERE key = ?", t.name),
		key,
	).Scan(&r.Value, &r.Exp)

	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("get %q: %w", key, Classify(err))
	}
	return r, true, nil
}

// Exists reports whether a non-expired record for key is present, without
// reading the value column.
func (t Table) Exists(ctx context.Context, q Queryer, key string, now int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE key = ? AND (exp = -1 OR exp >= ?)", t.name),
		key, now,
	).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, Classify(err))
	}
	return true, nil
}

// Upsert writes a record, replacing value and expiry entirely when the
// key already exists.
func (t Table) Upsert(ctx context.Context, q Queryer, key, value string, exp int64) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value, exp) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, exp = excluded.exp`, t.name),
		key, value, exp,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, Classify(err))
	}
	return nil
}

// UpdateValue rewrites only the value column, leaving expiry untouched.
func (t Table) UpdateValue(ctx context.Context, q Queryer, key, value string) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET value = ? WHERE key = ?", t.name),
		value, key,
	)
	if err != nil {
		return fmt.Errorf("update %q: %w", key, Classify(err))
	}
	return nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (t Table) Delete(ctx context.Context, q Queryer, key string) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = ?", t.name), key,
	)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, Classify(err))
	}
	return nil
}

// DeleteAll removes every record in one statement.
func (t Table) DeleteAll(ctx context.Context, q Queryer) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t.name)); err != nil {
		return fmt.Errorf("clear %s: %w", t.name, Classify(err))
	}
	return nil
}

// DeleteExpired removes every record whose expiry instant is strictly
// before now and returns how many were removed.
func (t Table) DeleteExpired(ctx context.Context, q Queryer, now int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE exp != -1 AND exp < ?", t.name), now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", Classify(err))
	}
	return n, nil
}

// Scan returns one page of rows in key order.
func (t Table) Scan(ctx context.Context, q Queryer, limit, offset int) ([]Row, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT key, value, exp FROM %s ORDER BY key LIMIT ? OFFSET ?", t.name),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", Classify(err))
	}
	defer rows.Close()
	return collect(rows)
}

// ScanAll returns every row in key order. Unbounded; callers needing
// bounded memory page with Scan.
func (t Table) ScanAll(ctx context.Context, q Queryer) ([]Row, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT key, value, exp FROM %s ORDER BY key", t.name),
	)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", Classify(err))
	}
	defer rows.Close()
	return collect(rows)
}

// Count returns the total number of records, expired included.
func (t Table) Count(ctx context.Context, q Queryer) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", t.name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", Classify(err))
	}
	return n, nil
}

// CountExpired returns how many records are past their expiry instant.
func (t Table) CountExpired(ctx context.Context, q Queryer, now int64) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE exp != -1 AND exp < ?", t.name), now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", Classify(err))
	}
	return n, nil
}

func collect(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Value, &r.Exp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return out, nil
}
