// Package source reads inspection spreadsheets into raw cell grids.
//
// Two formats are supported, selected by file extension:
//
//   - .xlsx / .xlsm through excelize, preserving numeric cells as numbers
//   - .csv through encoding/csv, with BOM removal and a Windows-1252
//     fallback for exports that are not valid UTF-8
//
// Every failure is returned as a *core.SourceReadError.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/JonMunkholm/postventa/internal/core"
)

// Format is a supported source file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFor returns the format implied by the file name's extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", core.ErrUnsupportedFormat
	}
}

// Options configures a Reader.
type Options struct {
	// Sheet is the worksheet to read. Empty selects the first sheet.
	Sheet string
}

// Reader converts spreadsheet files into core.RawGrid values.
type Reader struct {
	opts Options
}

// NewReader creates a Reader.
func NewReader(opts Options) *Reader {
	return &Reader{opts: opts}
}

// ReadFile reads the file at path.
func (r *Reader) ReadFile(ctx context.Context, path string) (core.RawGrid, error) {
	if _, err := FormatFor(path); err != nil {
		return core.RawGrid{}, core.NewSourceReadError(path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return core.RawGrid{}, core.NewSourceReadError(path, err)
	}
	defer f.Close()

	return r.Read(ctx, path, f)
}

// Read reads an in-memory source. name is used for the format and for errors.
func (r *Reader) Read(ctx context.Context, name string, src io.Reader) (core.RawGrid, error) {
	format, err := FormatFor(name)
	if err != nil {
		return core.RawGrid{}, core.NewSourceReadError(name, err)
	}

	var grid core.RawGrid
	switch format {
	case FormatXLSX:
		grid, err = r.readXLSX(ctx, src)
	case FormatCSV:
		grid, err = readCSV(ctx, src)
	}
	if err != nil {
		return core.RawGrid{}, core.NewSourceReadError(name, err)
	}
	if len(grid.Rows) == 0 {
		return core.RawGrid{}, core.NewSourceReadError(name, core.ErrEmptySource)
	}
	return grid, nil
}

func (r *Reader) readXLSX(ctx context.Context, src io.Reader) (core.RawGrid, error) {
	f, err := excelize.OpenReader(src, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.RawGrid{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return core.RawGrid{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return core.RawGrid{}, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.RawGrid{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	grid := core.RawGrid{Rows: make([][]core.Cell, 0, len(rows))}
	for i, values := range rows {
		if err := ctx.Err(); err != nil {
			return core.RawGrid{}, err
		}
		row := make([]core.Cell, len(values))
		for j, raw := range values {
			row[j] = xlsxCell(f, sheet, j+1, i+1, raw)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

// xlsxCell converts a raw cell value. Numeric cells are usually written
// without an explicit type, so untyped values that parse as a float are numbers.
func xlsxCell(f *excelize.File, sheet string, col, row int, raw string) core.Cell {
	if raw == "" {
		return core.EmptyCell()
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return core.TextCell(raw)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return core.TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return core.NumberCell(n)
		}
	}
	return core.TextCell(raw)
}

func readCSV(ctx context.Context, src io.Reader) (core.RawGrid, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return core.RawGrid{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return core.RawGrid{}, fmt.Errorf("decode windows-1252: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var grid core.RawGrid
	for {
		if err := ctx.Err(); err != nil {
			return core.RawGrid{}, err
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.RawGrid{}, fmt.Errorf("parse csv: %w", err)
		}

		row := make([]core.Cell, len(record))
		for i, field := range record {
			if field == "" {
				row[i] = core.EmptyCell()
				continue
			}
			row[i] = core.TextCell(field)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

// sniffDelimiter picks ';' over ',' when the first line uses more of it.
// Excel in Spanish locales exports semicolon-separated files.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
