// Package sqlite persists the verdict cache and the audit trail in a single
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"breachwatch/internal/audit"
	"breachwatch/internal/common"
)

type DB struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	d := &DB{db: db, now: time.Now}
	if err := d.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_unix_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_unix_ns);`,
		`CREATE TABLE IF NOT EXISTS check_records (
			record_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			query_key TEXT NOT NULL,
			positive INTEGER NOT NULL,
			summary_json TEXT NOT NULL,
			created_unix_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind_ts ON check_records(kind, created_unix_ns);`,
		`CREATE INDEX IF NOT EXISTS idx_records_query ON check_records(query_key);`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// Get returns the cached value for key. Expired rows read as misses and are
// deleted.
func (d *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value   []byte
		expires int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT value, expires_unix_ns FROM cache_entries WHERE cache_key = ?;`, key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite cache get: %w", err)
	}
	if d.now().UnixNano() >= expires {
		if _, err := d.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?;`, key); err != nil {
			return nil, false, fmt.Errorf("sqlite cache expire: %w", err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

func (d *DB) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO cache_entries(cache_key, value, expires_unix_ns) VALUES(?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_unix_ns = excluded.expires_unix_ns;`,
		key, value, d.now().Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite cache put: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired cache row and reports how many went.
func (d *DB) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_unix_ns <= ?;`, d.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite cache purge: %w", err)
	}
	return res.RowsAffected()
}

func (d *DB) Record(ctx context.Context, r audit.Record) error {
	if r.ID == "" {
		return fmt.Errorf("record missing id")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = d.now().UTC()
	}
	summary := r.Summary
	if summary == nil {
		summary = map[string]any{}
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO check_records(record_id, kind, query_key, positive, summary_json, created_unix_ns)
		VALUES(?,?,?,?,?,?);`,
		r.ID, string(r.Kind), r.QueryKey, boolInt(r.Positive), string(b), r.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Recent returns up to limit records of kind, newest first. An empty kind
// matches every kind.
func (d *DB) Recent(ctx context.Context, kind common.CheckKind, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT record_id, kind, query_key, positive, summary_json, created_unix_ns
		FROM check_records
		WHERE (? = '' OR kind = ?)
		ORDER BY created_unix_ns DESC
		LIMIT ?;`,
		string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			r        audit.Record
			kindStr  string
			positive int
			summary  string
			created  int64
		)
		if err := rows.Scan(&r.ID, &kindStr, &r.QueryKey, &positive, &summary, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Kind = common.CheckKind(kindStr)
		r.Positive = positive != 0
		r.CreatedAt = time.Unix(0, created).UTC()
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
