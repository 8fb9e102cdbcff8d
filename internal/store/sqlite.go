package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/postventa/internal/core"
)

const memoryPath = ":memory:"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS historial (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		area        TEXT NOT NULL,
		item        TEXT NOT NULL,
		detail      TEXT NOT NULL,
		chapter     TEXT NOT NULL,
		unit        TEXT NOT NULL,
		status      TEXT NOT NULL,
		report_date TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_historial_report_date ON historial (report_date)`,
}

// SQLiteStore is the file-backed store.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
// "sqlite://" and "file:" prefixes are accepted; ":memory:" opens a private
// in-memory database. The caller must call EnsureSchema, or use Open.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection: SQLite has a single writer and each :memory:
	// connection would otherwise see its own database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Backend implements Store.
func (s *SQLiteStore) Backend() string {
	return "sqlite"
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// EnsureSchema implements Store.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, records []core.NormalizedRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(recordColumns)), ", ")
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", TableName, strings.Join(recordColumns, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, recordRow(rec)...); err != nil {
			return 0, fmt.Errorf("sqlite: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return int64(len(records)), nil
}

// Total implements Store.
func (s *SQLiteStore) Total(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+TableName); err != nil {
		return 0, fmt.Errorf("sqlite: total: %w", err)
	}
	return n, nil
}

// CountBy implements Store.
func (s *SQLiteStore) CountBy(ctx context.Context, dim Dimension, limit int) ([]Count, error) {
	q, err := countQuery(dim, limit, "")
	if err != nil {
		return nil, err
	}

	counts := []Count{}
	if err := s.db.SelectContext(ctx, &counts, q); err != nil {
		return nil, fmt.Errorf("sqlite: count by %s: %w", dim, err)
	}
	return counts, nil
}

// Head implements Store.
func (s *SQLiteStore) Head(ctx context.Context, limit int) ([]StoredRecord, error) {
	records := []StoredRecord{}
	if err := s.db.SelectContext(ctx, &records, headQuery(limit)); err != nil {
		return nil, fmt.Errorf("sqlite: head: %w", err)
	}
	return records, nil
}

// Columns implements Store.
func (s *SQLiteStore) Columns(ctx context.Context) ([]ColumnInfo, error) {
	rows, err := s.db.QueryxContext(ctx, "PRAGMA table_info("+TableName+")")
	if err != nil {
		return nil, fmt.Errorf("sqlite: table info: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("sqlite: scan table info: %w", err)
		}
		cols = append(cols, ColumnInfo{Name: name, Type: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: table info: %w", err)
	}
	return cols, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
