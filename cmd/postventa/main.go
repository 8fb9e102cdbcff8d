// Command postventa ingests the post-sale inspection workbook into the
// history store and writes the PDF report.
//
//	postventa run             ingest INPUT_PATH and write REPORT_OUTPUT_PATH
//	postventa report          write the report from the existing history
//	postventa query head      first stored records
//	postventa query columns   history table columns
//	postventa query status    record counts by status
//	postventa query units     units with the most records
//	postventa query by DIM    record counts by any dimension
//
// Configuration comes from the environment and an optional .env file.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("postventa failed", "error", err)
		os.Exit(1)
	}
}
