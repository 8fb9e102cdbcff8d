package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postventa/internal/ingest"
	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/report"
	"github.com/JonMunkholm/postventa/internal/source"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/summary"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest INPUT_PATH into the history and write the PDF report",
		Long: `Reads the inspection workbook at INPUT_PATH, appends one record per
(item, unit) with a non-empty status, then writes the report for the whole
history to REPORT_OUTPUT_PATH. Any failure exits non-zero and writes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st store.Store) error {
				if err := a.ingest(cmd.Context(), st); err != nil {
					return err
				}
				return a.writeReport(cmd.Context(), st)
			})
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write the PDF report from the existing history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st store.Store) error {
				return a.writeReport(cmd.Context(), st)
			})
		},
	}
}

func (a *app) ingest(ctx context.Context, st store.Store) error {
	reader := source.NewReader(source.Options{Sheet: a.cfg.Source.Sheet})
	svc := ingest.NewService(reader, st, ingest.ConfigOptions(a.cfg, nil))

	res, err := svc.IngestFile(ctx, a.cfg.Source.Path)
	if err != nil {
		return describe(err)
	}

	fmt.Fprintf(a.out, "Archivo: %s\n", res.FileName)
	fmt.Fprintf(a.out, "Fila de encabezado: %d\n", res.HeaderRow)
	fmt.Fprintf(a.out, "Columnas de casas: %d\n", len(res.UnitColumns))
	fmt.Fprintf(a.out, "Registros insertados: %d (descartados por estado vacío: %d)\n", res.Inserted, res.Dropped)
	return nil
}

func (a *app) writeReport(ctx context.Context, st store.Store) error {
	sum, err := summary.Compute(ctx, st, summary.Options{
		TopUnits:    a.cfg.Report.TopUnits,
		TopChapters: a.cfg.Report.TopChapters,
	})
	if err != nil {
		return describe(err)
	}

	renderer := report.NewRenderer(report.Options{Title: a.cfg.Report.Title})
	if err := renderer.WritePDF(a.cfg.Report.OutputPath, sum); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logging.FromContext(ctx).Info("report written", "path", a.cfg.Report.OutputPath, "total", sum.Total)
	fmt.Fprintf(a.out, "Total de registros en historial: %d\n", sum.Total)
	fmt.Fprintf(a.out, "Informe generado: %s\n", a.cfg.Report.OutputPath)
	return nil
}
