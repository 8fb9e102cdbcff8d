package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
	"github.com/JonMunkholm/postventa/internal/source"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/telemetry"
)

func reportDay() time.Time {
	return time.Date(2025, time.November, 17, 8, 0, 0, 0, time.UTC)
}

func writeInforme(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"INFORME POSTVENTA BORRADOR"},
		{"Proyecto", "Los Robles"},
		{"AREA", "ITEM", "DETALLE", "CAPITULO", "CASA 1", "CASA 2"},
		{"Cocina", "Grifo", "Grifo con fuga", "Plomeria", "Pendiente", "OK"},
		{"Baño", "WC", "Estanque suelto", "Sanitario", nil, "Pendiente"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "INFORME POSTVENTA BORRADOR.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func newTestService(t *testing.T, metrics *telemetry.Metrics) (*Service, store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), config.DatabaseConfig{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := NewService(source.NewReader(source.Options{}), st, Options{
		Now:     reportDay,
		MaxWait: time.Second,
		Metrics: metrics,
	})
	return svc, st
}

func TestIngestFile_EndToEnd(t *testing.T) {
	ctx := context.Background()
	metrics := telemetry.New()
	svc, st := newTestService(t, metrics)

	res, err := svc.IngestFile(ctx, writeInforme(t))
	require.NoError(t, err)

	assert.Equal(t, "2025-11-17", res.ReportDate)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, []string{"AREA", "ITEM", "DETALLE", "CAPITULO", "CASA 1", "CASA 2"}, res.Labels)
	assert.Len(t, res.UnitColumns, 2)
	assert.Equal(t, 4, res.Candidates)
	assert.EqualValues(t, 3, res.Inserted)
	assert.Equal(t, 1, res.Dropped)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())
	assert.Empty(t, res.Records, "persisted runs do not echo records")

	head, err := st.Head(ctx, 0)
	require.NoError(t, err)
	got := make([]core.NormalizedRecord, len(head))
	for i, r := range head {
		got[i] = r.NormalizedRecord
	}
	want := []core.NormalizedRecord{
		{Area: "Cocina", Item: "Grifo", Detail: "Grifo con fuga", Chapter: "Plomeria", Unit: "CASA 1", Status: "Pendiente", ReportDate: "2025-11-17"},
		{Area: "Cocina", Item: "Grifo", Detail: "Grifo con fuga", Chapter: "Plomeria", Unit: "CASA 2", Status: "OK", ReportDate: "2025-11-17"},
		{Area: "Baño", Item: "WC", Detail: "Estanque suelto", Chapter: "Sanitario", Unit: "CASA 2", Status: "Pendiente", ReportDate: "2025-11-17"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues(telemetry.OutcomeSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RecordsInserted))
}

func TestIngest_CSVUpload(t *testing.T) {
	svc, st := newTestService(t, nil)

	csv := "AREA;ITEM;DETALLE;CAPITULO;CASA 1\nLiving;Muro;Fisura;Terminaciones;Pendiente\n"
	res, err := svc.Ingest(context.Background(), "postventa.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Inserted)

	total, err := st.Total(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestIngest_FailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		wantCode string
	}{
		{"header not found", "a.csv", "AREA,ITEM,CASA 1\nx,y,OK\n", "HDR001"},
		{"missing chapter", "a.csv", "AREA,ITEM,DETALLE,CASA 1\nx,y,z,OK\n", "COL001"},
		{"unsupported format", "a.txt", "DETALLE\n", "SRC002"},
		{"empty source", "a.csv", "", "SRC001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := telemetry.New()
			svc, st := newTestService(t, metrics)

			res, err := svc.Ingest(context.Background(), tt.file, strings.NewReader(tt.body))
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, core.MapError(err).Code)

			total, err := st.Total(context.Background())
			require.NoError(t, err)
			assert.Zero(t, total)

			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues(telemetry.OutcomeInput)))
		})
	}
}

func TestIngestFile_MissingSource(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
	var srcErr *core.SourceReadError
	assert.ErrorAs(t, err, &srcErr)
}

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, []core.NormalizedRecord) (int64, error) {
	return 0, f.err
}

func TestIngest_StoreFailure(t *testing.T) {
	metrics := telemetry.New()
	boom := errors.New("connection refused")
	svc := NewService(source.NewReader(source.Options{}), failingAppender{boom}, Options{Metrics: metrics})

	_, err := svc.Ingest(context.Background(), "a.csv", strings.NewReader("AREA,ITEM,DETALLE,CAPITULO,CASA 1\na,b,c,d,OK\n"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues(telemetry.OutcomeFailure)))
}

// blockingReader holds the writer slot until released.
type blockingReader struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingReader) ReadFile(ctx context.Context, path string) (core.RawGrid, error) {
	return b.Read(ctx, path, nil)
}

func (b *blockingReader) Read(ctx context.Context, name string, _ io.Reader) (core.RawGrid, error) {
	close(b.started)
	<-b.release
	return core.RawGrid{}, core.NewSourceReadError(name, core.ErrEmptySource)
}

func TestIngest_BusyWhileRunning(t *testing.T) {
	reader := &blockingReader{started: make(chan struct{}), release: make(chan struct{})}
	metrics := telemetry.New()
	svc := NewService(reader, failingAppender{}, Options{MaxWait: 50 * time.Millisecond, Metrics: metrics})

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.IngestFile(context.Background(), "first.xlsx")
	}()
	<-reader.started

	_, err := svc.IngestFile(context.Background(), "second.xlsx")
	assert.ErrorIs(t, err, ErrIngestBusy)
	assert.Equal(t, "UPL002", core.MapError(err).Code)

	close(reader.release)
	<-done
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues(telemetry.OutcomeBusy)))
}

func TestPreview_DoesNotPersist(t *testing.T) {
	svc, st := newTestService(t, nil)

	body := "AREA,ITEM,DETALLE,CAPITULO,CASA 1,CASA 2\nCocina,Grifo,Fuga,Plomeria,OK,\n"
	res, err := svc.Preview(context.Background(), "a.csv", bytes.NewBufferString(body))
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "CASA 1", res.Records[0].Unit)

	total, err := st.Total(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNewService_CustomVocabulary(t *testing.T) {
	vocab := core.DefaultVocabulary()
	vocab.Unit = "DEPTO"
	svc := NewService(source.NewReader(source.Options{}), failingAppender{}, Options{Vocabulary: vocab})

	body := "AREA,ITEM,DETALLE,CAPITULO,DEPTO 101\nx,y,z,w,OK\n"
	res, err := svc.Preview(context.Background(), "a.csv", strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.UnitColumns, 1)
	assert.Equal(t, "DEPTO 101", res.UnitColumns[0].Label)
}

func TestConfigOptions(t *testing.T) {
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		switch key {
		case "HEADER_MARKER":
			return "PARTIDA", true
		case "UNIT_KEYWORD":
			return "LOTE", true
		case "UPLOAD_MAX_WAIT_TIME":
			return "2s", true
		}
		return "", false
	})
	require.NoError(t, err)

	opts := ConfigOptions(cfg, nil)
	assert.Equal(t, "PARTIDA", opts.Vocabulary.Marker)
	assert.Equal(t, "LOTE", opts.Vocabulary.Unit)
	assert.Equal(t, core.DefaultVocabulary().Chapter, opts.Vocabulary.Chapter)
	assert.Equal(t, 2*time.Second, opts.MaxWait)
}
