// Package ingest runs the post-sale pipeline: read the spreadsheet, promote
// the header, classify columns, reshape to records and append them to the
// history store.
//
// Every step before persistence can fail; a failed run writes nothing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/telemetry"
)

// GridReader loads tabular sources.
type GridReader interface {
	ReadFile(ctx context.Context, path string) (core.RawGrid, error)
	Read(ctx context.Context, name string, r io.Reader) (core.RawGrid, error)
}

// Appender persists normalized records.
type Appender interface {
	Append(ctx context.Context, records []core.NormalizedRecord) (int64, error)
}

// Options configures a Service.
type Options struct {
	// Vocabulary holds the header keywords. Zero value uses core.DefaultVocabulary.
	Vocabulary core.Vocabulary

	// MaxWait bounds how long a run waits for the writer slot.
	MaxWait time.Duration

	// Now supplies the report date. Defaults to time.Now.
	Now func() time.Time

	// Metrics is optional.
	Metrics *telemetry.Metrics
}

// ConfigOptions derives Options from the application configuration.
func ConfigOptions(cfg *config.Config, metrics *telemetry.Metrics) Options {
	vocab := core.DefaultVocabulary()
	vocab.Marker = cfg.Source.HeaderMarker
	vocab.Unit = cfg.Source.UnitKeyword

	return Options{
		Vocabulary: vocab,
		MaxWait:    cfg.Upload.MaxWaitTime,
		Metrics:    metrics,
	}
}

// Result describes one pipeline run.
type Result struct {
	RunID       uuid.UUID          `json:"run_id"`
	FileName    string             `json:"file_name"`
	ReportDate  string             `json:"report_date"`
	HeaderRow   int                `json:"header_row"`
	Labels      []string           `json:"labels"`
	UnitColumns []core.ColumnRef   `json:"unit_columns"`
	Roles       core.ColumnRoleMap `json:"roles"`
	Candidates  int                `json:"candidates"`
	Inserted    int64              `json:"inserted"`
	Dropped     int                `json:"dropped"`
	DryRun      bool               `json:"dry_run"`
	Duration    time.Duration      `json:"-"`
	DurationMS  int64              `json:"duration_ms"`

	// Records holds the normalized records of a dry run.
	Records []core.NormalizedRecord `json:"records,omitempty"`
}

// Service orchestrates ingestion runs.
type Service struct {
	reader  GridReader
	store   Appender
	vocab   core.Vocabulary
	now     func() time.Time
	metrics *telemetry.Metrics
	limiter *Limiter
}

// NewService creates a Service. Runs that persist are serialized.
func NewService(reader GridReader, st Appender, opts Options) *Service {
	vocab := opts.Vocabulary
	if vocab.Marker == "" {
		vocab = core.DefaultVocabulary()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		reader:  reader,
		store:   st,
		vocab:   vocab,
		now:     now,
		metrics: opts.Metrics,
		limiter: NewLimiter(1, opts.MaxWait),
	}
}

// Limiter exposes the writer slot for status reporting and draining.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// IngestFile runs the pipeline on the file at path.
func (s *Service) IngestFile(ctx context.Context, path string) (*Result, error) {
	return s.run(ctx, path, func(ctx context.Context) (core.RawGrid, error) {
		return s.reader.ReadFile(ctx, path)
	})
}

// Ingest runs the pipeline on an uploaded source. name selects the format.
func (s *Service) Ingest(ctx context.Context, name string, r io.Reader) (*Result, error) {
	return s.run(ctx, name, func(ctx context.Context) (core.RawGrid, error) {
		return s.reader.Read(ctx, name, r)
	})
}

// Preview runs every step except persistence and returns the records it
// would append. It does not take the writer slot.
func (s *Service) Preview(ctx context.Context, name string, r io.Reader) (*Result, error) {
	start := time.Now()
	res := s.newResult(name)
	res.DryRun = true
	ctx = logging.WithRunID(ctx, res.RunID.String())

	grid, err := s.reader.Read(ctx, name, r)
	if err != nil {
		return nil, err
	}
	records, err := s.transform(ctx, grid, res)
	if err != nil {
		return nil, err
	}

	res.Records = records
	res.finish(start)
	logging.FromContext(ctx).Info("preview completed",
		"file", name,
		"candidates", res.Candidates,
		"records", len(records),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, name string, read func(context.Context) (core.RawGrid, error)) (res *Result, err error) {
	start := time.Now()
	res = s.newResult(name)
	ctx = logging.WithRunID(ctx, res.RunID.String())
	logger := logging.WithFields(ctx, "file", name)

	defer func() {
		s.observe(err, res, start)
		if err != nil {
			logger.Error("ingestion failed", "error", err, "code", core.MapError(err).Code)
			res = nil
		}
	}()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger.Info("ingestion started", "report_date", res.ReportDate)

	grid, err := read(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("source read", "rows", len(grid.Rows))

	records, err := s.transform(ctx, grid, res)
	if err != nil {
		return nil, err
	}

	inserted, err := s.store.Append(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("append records: %w", err)
	}
	res.Inserted = inserted
	res.finish(start)

	logger.Info("ingestion completed",
		"inserted", res.Inserted,
		"dropped", res.Dropped,
		"duration_ms", res.DurationMS,
	)
	return res, nil
}

// transform promotes the header, classifies columns and reshapes the grid,
// filling the descriptive fields of res.
func (s *Service) transform(ctx context.Context, grid core.RawGrid, res *Result) ([]core.NormalizedRecord, error) {
	logger := logging.FromContext(ctx)

	res.HeaderRow = s.vocab.FindHeaderRow(grid)
	labeled, err := s.vocab.DetectAndPromoteHeader(grid)
	if err != nil {
		return nil, err
	}
	res.Labels = labeled.Labels
	logger.Debug("header promoted", "row", res.HeaderRow, "columns", labeled.Width(), "body_rows", len(labeled.Rows))

	roles := s.vocab.ClassifyColumns(labeled)
	res.Roles = roles
	res.UnitColumns = roles.UnitColumns
	logger.Debug("columns classified", "units", len(roles.UnitColumns), "missing", roles.Missing())

	records, err := s.vocab.Reshape(labeled, roles, res.ReportDate)
	if err != nil {
		return nil, err
	}

	res.Candidates = len(labeled.Rows) * len(roles.UnitColumns)
	res.Dropped = res.Candidates - len(records)
	return records, nil
}

func (s *Service) newResult(name string) *Result {
	return &Result{
		RunID:      uuid.New(),
		FileName:   name,
		ReportDate: core.FormatReportDate(s.now()),
		HeaderRow:  -1,
	}
}

func (r *Result) finish(start time.Time) {
	r.Duration = time.Since(start)
	r.DurationMS = r.Duration.Milliseconds()
}

func (s *Service) observe(err error, res *Result, start time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := telemetry.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrIngestBusy):
		outcome = telemetry.OutcomeBusy
	case core.IsInputError(err):
		outcome = telemetry.OutcomeInput
	default:
		outcome = telemetry.OutcomeFailure
	}

	var inserted, dropped int
	if err == nil {
		inserted, dropped = int(res.Inserted), res.Dropped
	}
	s.metrics.ObserveIngest(outcome, inserted, dropped, start)
}
