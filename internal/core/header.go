package core

// header.go locates the real header row of an inspection workbook.
//
// Workbooks start with banner rows (project name, dates, logos) before the
// header. The header is the first row where any cell contains the marker
// keyword. Later rows containing the marker are ordinary data.

import (
	"strconv"
	"strings"
)

// Vocabulary holds the keywords used to detect the header and classify columns.
// All keywords are matched case-insensitively as substrings.
type Vocabulary struct {
	Marker  string // identifies the header row
	Unit    string // identifies per-unit (housing) columns
	Detail  string
	Item    string
	Chapter string
	Unnamed string // placeholder prefix for columns without a header
}

// DefaultVocabulary returns the keywords used by the inspection workbooks.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Marker:  "DETALLE",
		Unit:    "CASA",
		Detail:  "DETALLE",
		Item:    "ITEM",
		Chapter: "CAPITULO",
		Unnamed: "UNNAMED",
	}
}

// DetectAndPromoteHeader finds the header row using the default vocabulary.
func DetectAndPromoteHeader(grid RawGrid) (LabeledGrid, error) {
	return DefaultVocabulary().DetectAndPromoteHeader(grid)
}

// FindHeaderRow returns the index of the first row containing the marker, or -1.
func (v Vocabulary) FindHeaderRow(grid RawGrid) int {
	marker := strings.ToUpper(v.Marker)
	if marker == "" {
		return -1
	}
	for i, row := range grid.Rows {
		for _, cell := range row {
			if strings.Contains(strings.ToUpper(cell.String()), marker) {
				return i
			}
		}
	}
	return -1
}

// DetectAndPromoteHeader promotes the first row containing the marker to
// column labels and returns the rows below it, re-indexed from zero.
// The input grid is not modified.
func (v Vocabulary) DetectAndPromoteHeader(grid RawGrid) (LabeledGrid, error) {
	h := v.FindHeaderRow(grid)
	if h < 0 {
		return LabeledGrid{}, &HeaderNotFoundError{Marker: v.Marker}
	}

	header := grid.Rows[h]
	body := grid.Rows[h+1:]

	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}

	labels := make([]string, width)
	for i := range labels {
		var label string
		if i < len(header) {
			label = strings.TrimSpace(header[i].String())
		}
		if label == "" {
			label = v.placeholderLabel(i)
		}
		labels[i] = label
	}

	rows := make([][]Cell, len(body))
	for i, row := range body {
		padded := make([]Cell, width)
		copy(padded, row)
		rows[i] = padded
	}

	return LabeledGrid{Labels: labels, Rows: rows}, nil
}

// placeholderLabel names a column that has no header text, e.g. "Unnamed: 4".
func (v Vocabulary) placeholderLabel(index int) string {
	prefix := v.Unnamed
	if prefix == "" {
		prefix = DefaultVocabulary().Unnamed
	}
	return strings.ToUpper(prefix[:1]) + strings.ToLower(prefix[1:]) + ": " + strconv.Itoa(index)
}
