package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS historial (
		id          BIGSERIAL PRIMARY KEY,
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

// PostgresStore is the PostgreSQL-backed store.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// OpenPostgres connects a pool configured from cfg.
// The caller must call EnsureSchema, or use Open.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	var name string
	if u, err := url.Parse(cfg.URL); err == nil {
		name = strings.TrimPrefix(u.Path, "/")
	}

	return &PostgresStore{pool: pool, name: name}, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Backend implements Store.
func (s *PostgresStore) Backend() string {
	return "postgres"
}

// DatabaseName returns the database name from the connection URL, if known.
func (s *PostgresStore) DatabaseName() string {
	return s.name
}

// EnsureSchema implements Store.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// Append implements Store using the COPY protocol inside a transaction.
func (s *PostgresStore) Append(ctx context.Context, records []core.NormalizedRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{TableName},
		recordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return recordRow(records[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// Total implements Store.
func (s *PostgresStore) Total(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: total: %w", err)
	}
	return n, nil
}

// CountBy implements Store. Keys tie-break in byte order regardless of the
// database collation.
func (s *PostgresStore) CountBy(ctx context.Context, dim Dimension, limit int) ([]Count, error) {
	q, err := countQuery(dim, limit, ` COLLATE "C"`)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by %s: %w", dim, err)
	}
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByName[Count])
	if err != nil {
		return nil, fmt.Errorf("postgres: count by %s: %w", dim, err)
	}
	return counts, nil
}

// Head implements Store.
func (s *PostgresStore) Head(ctx context.Context, limit int) ([]StoredRecord, error) {
	rows, err := s.pool.Query(ctx, headQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: head: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[StoredRecord])
	if err != nil {
		return nil, fmt.Errorf("postgres: head: %w", err)
	}
	return records, nil
}

// Columns implements Store.
func (s *PostgresStore) Columns(ctx context.Context) ([]ColumnInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = current_schema()
		ORDER BY ordinal_position`, TableName)
	if err != nil {
		return nil, fmt.Errorf("postgres: columns: %w", err)
	}

	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ColumnInfo, error) {
		var c ColumnInfo
		err := row.Scan(&c.Name, &c.Type)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: columns: %w", err)
	}
	return cols, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
