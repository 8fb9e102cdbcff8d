package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
)

func rec(area, chapter, unit, status string) core.NormalizedRecord {
	return core.NormalizedRecord{
		Area:       area,
		Item:       "item",
		Detail:     "detalle",
		Chapter:    chapter,
		Unit:       unit,
		Status:     status,
		ReportDate: "2025-11-17",
	}
}

func fixtureRecords() []core.NormalizedRecord {
	return []core.NormalizedRecord{
		rec("Cocina", "Plomeria", "CASA 1", "Pendiente"),
		rec("Cocina", "Plomeria", "CASA 2", "OK"),
		rec("Baño", "Sanitario", "CASA 1", "Pendiente"),
		rec("Baño", "Plomeria", "CASA 3", "OK"),
		rec("Living", "Terminaciones", "CASA 2", "Pendiente"),
		rec("Living", "Terminaciones", "CASA 1", "Resuelto"),
	}
}

func openMemory(t *testing.T) Store {
	t.Helper()
	st, err := Open(context.Background(), config.DatabaseConfig{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLite_AppendAndTotal(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	assert.Equal(t, "sqlite", st.Backend())

	total, err := st.Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	n, err := st.Append(ctx, fixtureRecords())
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	// No dedup: a second run appends again.
	n, err = st.Append(ctx, fixtureRecords())
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	total, err = st.Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
}

func TestSQLite_AppendEmpty(t *testing.T) {
	st := openMemory(t)

	n, err := st.Append(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_AppendCancelledWritesNothing(t *testing.T) {
	st := openMemory(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := st.Append(ctx, fixtureRecords())
	require.Error(t, err)

	total, err := st.Total(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSQLite_CountBy(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	_, err := st.Append(ctx, fixtureRecords())
	require.NoError(t, err)

	tests := []struct {
		name  string
		dim   Dimension
		limit int
		want  []Count
	}{
		{
			name: "status",
			dim:  DimStatus,
			want: []Count{{"Pendiente", 3}, {"OK", 2}, {"Resuelto", 1}},
		},
		{
			name:  "top units",
			dim:   DimUnit,
			limit: 2,
			want:  []Count{{"CASA 1", 3}, {"CASA 2", 2}},
		},
		{
			name: "ties break by key",
			dim:  DimArea,
			want: []Count{{"Baño", 2}, {"Cocina", 2}, {"Living", 2}},
		},
		{
			name:  "chapters",
			dim:   DimChapter,
			limit: 3,
			want:  []Count{{"Plomeria", 3}, {"Terminaciones", 2}, {"Sanitario", 1}},
		},
		{
			name: "report date",
			dim:  DimReportDate,
			want: []Count{{"2025-11-17", 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.CountBy(ctx, tt.dim, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLite_CountByInvalidDimension(t *testing.T) {
	st := openMemory(t)

	_, err := st.CountBy(context.Background(), Dimension("status; DROP TABLE historial"), 0)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSQLite_CountByEmpty(t *testing.T) {
	st := openMemory(t)

	got, err := st.CountBy(context.Background(), DimStatus, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_Head(t *testing.T) {
	ctx := context.Background()
	st := openMemory(t)
	_, err := st.Append(ctx, fixtureRecords())
	require.NoError(t, err)

	got, err := st.Head(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0].ID)
	assert.Equal(t, fixtureRecords()[0], got[0].NormalizedRecord)
	assert.Equal(t, "CASA 2", got[1].Unit)

	all, err := st.Head(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestSQLite_Columns(t *testing.T) {
	st := openMemory(t)

	cols, err := st.Columns(context.Background())
	require.NoError(t, err)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "area", "item", "detail", "chapter", "unit", "status", "report_date"}, names)
	assert.Equal(t, "INTEGER", cols[0].Type)
}

func TestSQLite_FilePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "historial_postventa.db")

	st, err := Open(ctx, config.DatabaseConfig{URL: "sqlite://" + path})
	require.NoError(t, err)
	_, err = st.Append(ctx, fixtureRecords()[:2])
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(ctx, config.DatabaseConfig{URL: path})
	require.NoError(t, err)
	defer st.Close()

	total, err := st.Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension(" Status ")
	require.NoError(t, err)
	assert.Equal(t, DimStatus, d)

	_, err = ParseDimension("detail")
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
