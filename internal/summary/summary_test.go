package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
	"github.com/JonMunkholm/postventa/internal/store"
)

type fakeQuerier struct {
	total  int64
	counts map[store.Dimension][]store.Count
	err    map[store.Dimension]error
}

func (f *fakeQuerier) Total(context.Context) (int64, error) {
	return f.total, nil
}

func (f *fakeQuerier) CountBy(ctx context.Context, dim store.Dimension, limit int) ([]store.Count, error) {
	if err := f.err[dim]; err != nil {
		return nil, err
	}
	counts := f.counts[dim]
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.November, 17, 9, 30, 0, 0, time.UTC)
}

func TestCompute_FromStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, config.DatabaseConfig{URL: ":memory:"})
	require.NoError(t, err)
	defer st.Close()

	var records []core.NormalizedRecord
	add := func(unit, chapter, area, status string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, core.NormalizedRecord{
				Area: area, Item: "i", Detail: "d", Chapter: chapter,
				Unit: unit, Status: status, ReportDate: "2025-11-17",
			})
		}
	}
	add("CASA 1", "Plomeria", "Cocina", "Pendiente", 4)
	add("CASA 2", "Electricidad", "Living", "OK", 2)
	add("CASA 3", "Terminaciones", "Baño", "Pendiente", 1)
	add("CASA 4", "Pintura", "Baño", "Resuelto", 1)
	_, err = st.Append(ctx, records)
	require.NoError(t, err)

	s, err := Compute(ctx, st, Options{TopUnits: 2, TopChapters: 3, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, fixedNow(), s.GeneratedAt)
	assert.EqualValues(t, 8, s.Total)
	assert.Equal(t, []store.Count{{Key: "Pendiente", Count: 5}, {Key: "OK", Count: 2}, {Key: "Resuelto", Count: 1}}, s.ByStatus)
	assert.Equal(t, []store.Count{{Key: "CASA 1", Count: 4}, {Key: "CASA 2", Count: 2}}, s.TopUnits)
	assert.Equal(t, []store.Count{{Key: "Plomeria", Count: 4}, {Key: "Electricidad", Count: 2}, {Key: "Pintura", Count: 1}}, s.TopChapters)
	assert.Equal(t, []store.Count{{Key: "Cocina", Count: 4}, {Key: "Baño", Count: 2}, {Key: "Living", Count: 2}}, s.ByArea)

	assert.Equal(t, 4, s.Units.Units)
	assert.InDelta(t, 2.0, s.Units.Mean, 1e-9)
	assert.InDelta(t, 1.5, s.Units.Median, 1e-9)
	assert.InDelta(t, 4.0, s.Units.Max, 1e-9)
}

func TestCompute_Empty(t *testing.T) {
	s, err := Compute(context.Background(), &fakeQuerier{}, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Zero(t, s.Total)
	assert.Empty(t, s.ByStatus)
	assert.Empty(t, s.TopUnits)
	assert.Equal(t, UnitStats{}, s.Units)
	assert.Equal(t, DefaultTopUnits, s.TopUnitsN)
	assert.Equal(t, DefaultTopChapters, s.TopChaptersN)
}

func TestCompute_TotalIsNotFirstAreaCount(t *testing.T) {
	q := &fakeQuerier{
		total: 10,
		counts: map[store.Dimension][]store.Count{
			store.DimArea: {{Key: "Cocina", Count: 6}, {Key: "Baño", Count: 4}},
		},
	}

	s, err := Compute(context.Background(), q, Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 10, s.Total)
}

func TestCompute_QueryError(t *testing.T) {
	boom := errors.New("connection refused")
	q := &fakeQuerier{err: map[store.Dimension]error{store.DimChapter: boom}}

	s, err := Compute(context.Background(), q, Options{})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "by chapter")
}
