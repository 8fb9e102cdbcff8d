// Package store persists normalized inspection records in the append-only
// historial table and answers the grouped-count queries behind the report.
//
// Two backends share one schema:
//
//   - SQLiteStore (sqlx over modernc.org/sqlite), the default, for a local file
//   - PostgresStore (pgxpool, COPY protocol) for postgres:// URLs
//
// There is no process-wide handle; callers receive a Store from Open and
// pass it explicitly.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
)

// TableName is the history table.
const TableName = "historial"

// recordColumns lists the insertable columns in NormalizedRecord field order.
var recordColumns = []string{"area", "item", "detail", "chapter", "unit", "status", "report_date"}

// ErrInvalidDimension is returned for a grouping column outside the allowed set.
var ErrInvalidDimension = errors.New("invalid dimension")

// Dimension is a column records can be grouped by.
type Dimension string

const (
	DimStatus     Dimension = "status"
	DimUnit       Dimension = "unit"
	DimChapter    Dimension = "chapter"
	DimArea       Dimension = "area"
	DimItem       Dimension = "item"
	DimReportDate Dimension = "report_date"
)

var dimensions = map[Dimension]bool{
	DimStatus:     true,
	DimUnit:       true,
	DimChapter:    true,
	DimArea:       true,
	DimItem:       true,
	DimReportDate: true,
}

// Valid reports whether d is one of the allowed grouping columns.
func (d Dimension) Valid() bool {
	return dimensions[d]
}

// ParseDimension converts user input to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
	}
	return d, nil
}

// Count is one group of a grouped count.
type Count struct {
	Key   string `json:"key" db:"label"`
	Count int64  `json:"count" db:"n"`
}

// StoredRecord is a persisted record with its generated id.
type StoredRecord struct {
	ID int64 `json:"id" db:"id"`
	core.NormalizedRecord
}

// ColumnInfo describes one column of the history table.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Store is the persistence collaborator.
type Store interface {
	// EnsureSchema creates the table and index if they do not exist.
	EnsureSchema(ctx context.Context) error

	// Append inserts all records in one transaction and returns the count.
	// Appending no records is a no-op.
	Append(ctx context.Context, records []core.NormalizedRecord) (int64, error)

	// Total returns the number of stored records.
	Total(ctx context.Context) (int64, error)

	// CountBy groups records by dim, ordered by count descending then key
	// ascending. limit <= 0 returns every group.
	CountBy(ctx context.Context, dim Dimension, limit int) ([]Count, error)

	// Head returns the first records by id. limit <= 0 returns all.
	Head(ctx context.Context, limit int) ([]StoredRecord, error)

	// Columns describes the history table.
	Columns(ctx context.Context) ([]ColumnInfo, error)

	// Backend names the database engine.
	Backend() string

	Close() error
}

// Open connects to the store selected by cfg.URL and ensures the schema.
// postgres:// and postgresql:// URLs select PostgreSQL; anything else is a
// SQLite path.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	if config.IsPostgresURL(cfg.URL) {
		st, err = OpenPostgres(ctx, cfg)
	} else {
		st, err = OpenSQLite(ctx, cfg.URL)
	}
	if err != nil {
		return nil, err
	}

	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// countQuery builds the grouped-count statement. dim must already be valid;
// collate is appended to the tie-break key.
func countQuery(dim Dimension, limit int, collate string) (string, error) {
	if !dim.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, string(dim))
	}

	q := fmt.Sprintf(
		"SELECT %[1]s AS label, COUNT(*) AS n FROM %[2]s GROUP BY %[1]s ORDER BY n DESC, label%[3]s ASC",
		dim, TableName, collate,
	)
	return q + limitClause(limit), nil
}

func headQuery(limit int) string {
	return fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", strings.Join(recordColumns, ", "), TableName) +
		limitClause(limit)
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

// recordRow returns the values of rec in recordColumns order.
func recordRow(rec core.NormalizedRecord) []any {
	return []any{rec.Area, rec.Item, rec.Detail, rec.Chapter, rec.Unit, rec.Status, rec.ReportDate}
}
