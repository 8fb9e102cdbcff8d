package core

import (
	"strconv"
	"strings"
	"time"
)

// CellKind identifies which variant a Cell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single spreadsheet value: text, a number, or nothing.
// The zero value is an empty cell.
type Cell struct {
	kind CellKind
	text string
	num  float64
}

// TextCell returns a text cell. The text is stored as-is, untrimmed.
func TextCell(s string) Cell {
	return Cell{kind: CellText, text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{kind: CellNumber, num: f}
}

// EmptyCell returns a missing value.
func EmptyCell() Cell {
	return Cell{}
}

// Kind reports the variant held by c.
func (c Cell) Kind() CellKind {
	return c.kind
}

// Number returns the numeric value and whether c is a number cell.
func (c Cell) Number() (float64, bool) {
	return c.num, c.kind == CellNumber
}

// String returns the text form of the cell.
// Numbers use the shortest decimal representation (1 -> "1", 2.5 -> "2.5").
func (c Cell) String() string {
	switch c.kind {
	case CellText:
		return c.text
	case CellNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	default:
		return ""
	}
}

// IsEmpty reports whether the cell carries no value once whitespace is trimmed.
func (c Cell) IsEmpty() bool {
	switch c.kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.text) == ""
	default:
		return false
	}
}

// RawGrid is tabular input straight from the reader: ordered rows of cells,
// possibly ragged, with no column identity.
type RawGrid struct {
	Rows [][]Cell
}

// LabeledGrid is a grid whose columns carry labels taken from the header row.
// Every row has exactly len(Labels) cells. Labels may repeat.
type LabeledGrid struct {
	Labels []string
	Rows   [][]Cell
}

// Width returns the number of columns.
func (g LabeledGrid) Width() int {
	return len(g.Labels)
}

// ColumnRef identifies a column by position and label.
// The index disambiguates repeated labels.
type ColumnRef struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Role names, in the order they are reported when missing.
const (
	RoleArea    = "area"
	RoleItem    = "item"
	RoleDetail  = "detail"
	RoleChapter = "chapter"
)

// ColumnRoleMap assigns the four descriptive roles and lists the unit columns.
// A nil role is unset.
type ColumnRoleMap struct {
	Area        *ColumnRef  `json:"area"`
	Item        *ColumnRef  `json:"item"`
	Detail      *ColumnRef  `json:"detail"`
	Chapter     *ColumnRef  `json:"chapter"`
	UnitColumns []ColumnRef `json:"unit_columns"`
}

// Missing returns the names of the unset roles in area, item, detail, chapter order.
func (m ColumnRoleMap) Missing() []string {
	var missing []string
	for _, slot := range m.fixed() {
		if slot.ref == nil {
			missing = append(missing, slot.role)
		}
	}
	return missing
}

type roleSlot struct {
	role string
	ref  *ColumnRef
}

func (m ColumnRoleMap) fixed() []roleSlot {
	return []roleSlot{
		{RoleArea, m.Area},
		{RoleItem, m.Item},
		{RoleDetail, m.Detail},
		{RoleChapter, m.Chapter},
	}
}

// NormalizedRecord is one (item, unit) observation ready for persistence.
// Every field is trimmed text and Status is never empty.
type NormalizedRecord struct {
	Area       string `json:"area" db:"area"`
	Item       string `json:"item" db:"item"`
	Detail     string `json:"detail" db:"detail"`
	Chapter    string `json:"chapter" db:"chapter"`
	Unit       string `json:"unit" db:"unit"`
	Status     string `json:"status" db:"status"`
	ReportDate string `json:"report_date" db:"report_date"`
}

// ReportDateLayout is the text layout of NormalizedRecord.ReportDate.
const ReportDateLayout = "2006-01-02"

// FormatReportDate renders t as a report date.
func FormatReportDate(t time.Time) string {
	return t.Format(ReportDateLayout)
}
