package core

import "strings"

// DetectUnitColumns returns the per-unit columns using the default vocabulary.
func DetectUnitColumns(grid LabeledGrid) []ColumnRef {
	return DefaultVocabulary().DetectUnitColumns(grid)
}

// ClassifyColumns assigns descriptive roles using the default vocabulary.
func ClassifyColumns(grid LabeledGrid) ColumnRoleMap {
	return DefaultVocabulary().ClassifyColumns(grid)
}

// DetectUnitColumns returns, left to right, every column whose label
// contains the unit keyword. Repeated labels are all kept.
func (v Vocabulary) DetectUnitColumns(grid LabeledGrid) []ColumnRef {
	var units []ColumnRef
	for i, label := range grid.Labels {
		if v.isUnit(label) {
			units = append(units, ColumnRef{Index: i, Label: label})
		}
	}
	return units
}

// ClassifyColumns assigns the four descriptive roles and the unit columns.
//
// Columns are scanned left to right. Unit columns never take a fixed role.
// For every other column the first matching rule applies:
//
//  1. label contains the detail keyword: detail (a later match overwrites)
//  2. label contains the item keyword: item (a later match overwrites)
//  3. label contains the chapter keyword: chapter (a later match overwrites)
//  4. area is unset and the label is not a placeholder: area
//
// Unresolved roles stay nil; Reshape reports them.
func (v Vocabulary) ClassifyColumns(grid LabeledGrid) ColumnRoleMap {
	roles := ColumnRoleMap{UnitColumns: v.DetectUnitColumns(grid)}

	detail := strings.ToUpper(v.Detail)
	item := strings.ToUpper(v.Item)
	chapter := strings.ToUpper(v.Chapter)
	unnamed := strings.ToUpper(v.Unnamed)

	for i, label := range grid.Labels {
		if v.isUnit(label) {
			continue
		}
		upper := strings.ToUpper(label)
		ref := &ColumnRef{Index: i, Label: label}

		switch {
		case containsKeyword(upper, detail):
			roles.Detail = ref
		case containsKeyword(upper, item):
			roles.Item = ref
		case containsKeyword(upper, chapter):
			roles.Chapter = ref
		case roles.Area == nil && !containsKeyword(upper, unnamed):
			roles.Area = ref
		}
	}

	return roles
}

func (v Vocabulary) isUnit(label string) bool {
	return containsKeyword(strings.ToUpper(label), strings.ToUpper(v.Unit))
}

// containsKeyword reports whether upper contains keyword; an empty keyword never matches.
func containsKeyword(upper, keyword string) bool {
	return keyword != "" && strings.Contains(upper, keyword)
}
