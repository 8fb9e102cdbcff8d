// Package summary computes the grouped metrics shown in the post-sale report.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/postventa/internal/store"
)

// Defaults for Options.
const (
	DefaultTopUnits    = 5
	DefaultTopChapters = 3
)

// Querier is the read side of the store.
type Querier interface {
	Total(ctx context.Context) (int64, error)
	CountBy(ctx context.Context, dim store.Dimension, limit int) ([]store.Count, error)
}

// Options configures Compute.
type Options struct {
	TopUnits    int
	TopChapters int

	// Now stamps GeneratedAt. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TopUnits <= 0 {
		o.TopUnits = DefaultTopUnits
	}
	if o.TopChapters <= 0 {
		o.TopChapters = DefaultTopChapters
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// UnitStats describes how records are spread across units.
type UnitStats struct {
	Units  int     `json:"units"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summary is the metric set behind the report.
type Summary struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Total       int64         `json:"total"`
	ByStatus    []store.Count `json:"by_status"`
	TopUnits    []store.Count `json:"top_units"`
	TopChapters []store.Count `json:"top_chapters"`
	ByArea      []store.Count `json:"by_area"`
	Units       UnitStats     `json:"units"`

	// TopUnitsN and TopChaptersN are the requested list lengths.
	TopUnitsN    int `json:"top_units_n"`
	TopChaptersN int `json:"top_chapters_n"`
}

// Compute runs the grouped queries concurrently. The first failure cancels
// the remaining queries.
func Compute(ctx context.Context, q Querier, opts Options) (*Summary, error) {
	opts = opts.withDefaults()

	s := &Summary{
		GeneratedAt:  opts.Now(),
		TopUnitsN:    opts.TopUnits,
		TopChaptersN: opts.TopChapters,
	}
	var units []store.Count

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := q.Total(ctx)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		s.Total = total
		return nil
	})
	g.Go(func() error {
		counts, err := q.CountBy(ctx, store.DimStatus, 0)
		if err != nil {
			return fmt.Errorf("by status: %w", err)
		}
		s.ByStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := q.CountBy(ctx, store.DimUnit, 0)
		if err != nil {
			return fmt.Errorf("by unit: %w", err)
		}
		units = counts
		return nil
	})
	g.Go(func() error {
		counts, err := q.CountBy(ctx, store.DimChapter, opts.TopChapters)
		if err != nil {
			return fmt.Errorf("by chapter: %w", err)
		}
		s.TopChapters = counts
		return nil
	})
	g.Go(func() error {
		counts, err := q.CountBy(ctx, store.DimArea, 0)
		if err != nil {
			return fmt.Errorf("by area: %w", err)
		}
		s.ByArea = counts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute summary: %w", err)
	}

	s.TopUnits = units
	if len(units) > opts.TopUnits {
		s.TopUnits = units[:opts.TopUnits]
	}
	s.Units = unitStats(units)

	return s, nil
}

// unitStats summarizes per-unit record counts. Empty input yields the zero value.
func unitStats(units []store.Count) UnitStats {
	if len(units) == 0 {
		return UnitStats{}
	}

	data := make(stats.Float64Data, len(units))
	for i, u := range units {
		data[i] = float64(u.Count)
	}

	// Errors only occur for empty input, handled above.
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	maxCount, _ := stats.Max(data)

	return UnitStats{
		Units:  len(units),
		Mean:   mean,
		Median: median,
		Max:    maxCount,
	}
}
