// Package core provides the business logic for post-sale inspection imports.
//
// This package is the heart of the importer, containing the spreadsheet
// reshaping logic independent of any file format, database, or transport
// layer. It can be used by the CLI, web handlers, or tests without
// modification.
//
// # Architecture
//
// A post-sale inspection workbook is a wide table: a few banner rows, then a
// header row, then one row per inspected item with one column per housing
// unit ("CASA 1", "CASA 2", ...). The package turns that layout into one
// [NormalizedRecord] per (item, unit) pair in three pure steps:
//
//  1. [DetectAndPromoteHeader] finds the first row containing the header
//     marker ("DETALLE"), promotes it to column labels, and drops it and
//     everything above it.
//  2. [DetectUnitColumns] and [ClassifyColumns] split the labels into the
//     per-unit columns and the four descriptive roles (area, item, detail,
//     chapter).
//  3. [Reshape] unpivots every body row across the unit columns, dropping
//     pairs without a status value and trimming every field.
//
// Cells are modelled as a closed variant ([Cell]: text, number, or empty)
// and only turned into text where normalization needs it.
//
// # Vocabulary
//
// The keywords driving detection live in a [Vocabulary]. The package-level
// functions use [DefaultVocabulary]; callers with a different marker or unit
// keyword use the same operations as methods on their own Vocabulary.
//
// # Error Handling
//
// Three typed errors cover every failure: [HeaderNotFoundError],
// [MissingColumnError], and [SourceReadError]. None is retryable: the
// transformation is deterministic. [MapError] turns any error into a
// [UserMessage] with a support code:
//
//   - HDR001: header row not found
//   - COL001: descriptive column missing
//   - SRC001-SRC002: source file unreadable or unsupported
//   - FILE001, FILE004: upload size and presence
//   - REQ001-REQ003: malformed request parameters
//   - UPL002, UPL004: ingestion busy or cancelled
//   - DB004, DB006: database reachability
package core
