package core

// reshape.go unpivots the wide inspection table into one record per
// (row, unit column) pair.
//
// Output order is row-major: every unit column of body row 0, then every
// unit column of body row 1, and so on. Pairs whose status cell is empty
// are dropped; they must never reach persistence.

import (
	"fmt"
	"strings"
)

// Reshape unpivots grid using the default vocabulary.
func Reshape(grid LabeledGrid, roles ColumnRoleMap, reportDate string) ([]NormalizedRecord, error) {
	return DefaultVocabulary().Reshape(grid, roles, reportDate)
}

// Reshape emits one NormalizedRecord per body row and unit column, skipping
// empty statuses. reportDate is attached to every record.
//
// It fails with *MissingColumnError when a descriptive role is unset or when
// a referenced column is not present in grid.
func (v Vocabulary) Reshape(grid LabeledGrid, roles ColumnRoleMap, reportDate string) ([]NormalizedRecord, error) {
	if err := checkRoles(grid, roles); err != nil {
		return nil, err
	}

	area, item, detail, chapter := roles.Area.Index, roles.Item.Index, roles.Detail.Index, roles.Chapter.Index
	reportDate = strings.TrimSpace(reportDate)

	records := make([]NormalizedRecord, 0, len(grid.Rows)*len(roles.UnitColumns))
	for _, row := range grid.Rows {
		for _, unit := range roles.UnitColumns {
			status := cellAt(row, unit.Index)
			if status.IsEmpty() {
				continue
			}
			records = append(records, NormalizedRecord{
				Area:       CleanCell(cellAt(row, area)),
				Item:       CleanCell(cellAt(row, item)),
				Detail:     CleanCell(cellAt(row, detail)),
				Chapter:    CleanCell(cellAt(row, chapter)),
				Unit:       strings.TrimSpace(unit.Label),
				Status:     CleanCell(status),
				ReportDate: reportDate,
			})
		}
	}

	return records, nil
}

// checkRoles verifies every fixed role is set and every referenced column exists.
func checkRoles(grid LabeledGrid, roles ColumnRoleMap) error {
	missing := roles.Missing()

	for _, slot := range roles.fixed() {
		if slot.ref != nil && !columnExists(grid, *slot.ref) {
			missing = append(missing, slot.role)
		}
	}
	for _, unit := range roles.UnitColumns {
		if !columnExists(grid, unit) {
			missing = append(missing, fmt.Sprintf("unit:%s", unit.Label))
		}
	}

	if len(missing) > 0 {
		return &MissingColumnError{Roles: missing}
	}
	return nil
}

func columnExists(grid LabeledGrid, ref ColumnRef) bool {
	return ref.Index >= 0 && ref.Index < len(grid.Labels) && grid.Labels[ref.Index] == ref.Label
}

// cellAt returns row[i], or an empty cell when the row is short.
func cellAt(row []Cell, i int) Cell {
	if i < 0 || i >= len(row) {
		return EmptyCell()
	}
	return row[i]
}

// CleanCell returns the trimmed text form of a cell.
func CleanCell(c Cell) string {
	return strings.TrimSpace(c.String())
}
