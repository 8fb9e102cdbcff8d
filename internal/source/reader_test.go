package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/postventa/internal/core"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "informe.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellStrings(row []core.Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.String()
	}
	return out
}

func TestReadFile_XLSX(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"INFORME POSTVENTA"},
		{"AREA", "ITEM", "DETALLE", "CAPITULO", "CASA 1", "CASA 2"},
		{"Cocina", "Grifo", "Fuga", "Plomeria", "Pendiente", 3},
	})

	grid, err := NewReader(Options{}).ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 3)

	assert.Equal(t, []string{"AREA", "ITEM", "DETALLE", "CAPITULO", "CASA 1", "CASA 2"}, cellStrings(grid.Rows[1]))

	body := grid.Rows[2]
	assert.Equal(t, core.CellText, body[4].Kind())
	n, ok := body[5].Number()
	assert.True(t, ok, "integer cell should be numeric")
	assert.Equal(t, 3.0, n)
	assert.Equal(t, "3", body[5].String())
}

func TestReadFile_XLSXNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Obra", [][]any{
		{"DETALLE", "CASA 1"},
	})

	grid, err := NewReader(Options{Sheet: "Obra"}).ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, grid.Rows, 1)

	_, err = NewReader(Options{Sheet: "Missing"}).ReadFile(context.Background(), path)
	var srcErr *core.SourceReadError
	require.ErrorAs(t, err, &srcErr)
	assert.Contains(t, err.Error(), "Missing")
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := []struct {
		name   string
		path   string
		target error
	}{
		{"missing file", filepath.Join(dir, "nope.xlsx"), os.ErrNotExist},
		{"unsupported extension", filepath.Join(dir, "informe.pdf"), core.ErrUnsupportedFormat},
		{"corrupt workbook", corrupt, nil},
		{"empty csv", empty, core.ErrEmptySource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := NewReader(Options{}).ReadFile(context.Background(), tt.path)
			assert.Empty(t, grid.Rows)

			var srcErr *core.SourceReadError
			require.ErrorAs(t, err, &srcErr)
			assert.Equal(t, tt.path, srcErr.Path)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "error %v should wrap %v", err, tt.target)
			}
		})
	}
}

func TestRead_CSV(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  [][]string
	}{
		{
			name:  "comma separated",
			input: []byte("AREA,DETALLE,CASA 1\nCocina,Fuga,OK\n"),
			want:  [][]string{{"AREA", "DETALLE", "CASA 1"}, {"Cocina", "Fuga", "OK"}},
		},
		{
			name:  "bom is skipped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("DETALLE,CASA 1\n")...),
			want:  [][]string{{"DETALLE", "CASA 1"}},
		},
		{
			name:  "semicolon separated",
			input: []byte("AREA;DETALLE;CASA 1\nBaño;Fisura, leve;OK\n"),
			want:  [][]string{{"AREA", "DETALLE", "CASA 1"}, {"Baño", "Fisura, leve", "OK"}},
		},
		{
			name:  "windows-1252 fallback",
			input: []byte("DETALLE,CAP\xcdTULO\nBa\xf1o,OK\n"),
			want:  [][]string{{"DETALLE", "CAPÍTULO"}, {"Baño", "OK"}},
		},
		{
			name:  "ragged rows",
			input: []byte("INFORME\nAREA,DETALLE,CASA 1\n"),
			want:  [][]string{{"INFORME"}, {"AREA", "DETALLE", "CASA 1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := NewReader(Options{}).Read(context.Background(), "upload.csv", bytes.NewReader(tt.input))
			require.NoError(t, err)

			got := make([][]string, len(grid.Rows))
			for i, row := range grid.Rows {
				got[i] = cellStrings(row)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_CSVEmptyFieldIsEmptyCell(t *testing.T) {
	grid, err := NewReader(Options{}).Read(context.Background(), "a.CSV", strings.NewReader("DETALLE,,CASA 1\n"))
	require.NoError(t, err)
	require.Len(t, grid.Rows[0], 3)
	assert.Equal(t, core.CellEmpty, grid.Rows[0][1].Kind())
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(Options{}).Read(ctx, "a.csv", strings.NewReader("DETALLE\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"INFORME POSTVENTA BORRADOR.xlsx": FormatXLSX,
		"macro.XLSM":                      FormatXLSX,
		"export.csv":                      FormatCSV,
	}
	for name, want := range tests {
		got, err := FormatFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFor("legacy.xls")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}
