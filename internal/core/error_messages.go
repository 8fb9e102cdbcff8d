package core

// error_messages.go maps errors to user-friendly messages with support codes.
//
// Typed errors from this package are matched first with errors.As. Anything
// else falls back to case-insensitive substring patterns on the error text;
// the first matching pattern wins, so specific patterns come before general
// ones.
//
//	HDR001  - Header row not found
//	COL001  - Descriptive column missing
//	SRC001  - Source file could not be read
//	SRC002  - Unsupported file type
//	FILE001 - File too large
//	FILE004 - No file provided
//	REQ001  - Invalid query parameter
//	REQ002  - Malformed upload form
//	REQ003  - Unknown grouping dimension
//	UPL002  - Another ingestion is running
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	DB004   - Database unreachable
//	DB006   - Database timeout
//	ERR000  - Anything else

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Remove unused sheets or split the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Remove unused sheets or split the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx or .csv file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid limit",
		msg: UserMessage{
			Message: "The limit parameter is invalid",
			Action:  "Use a positive whole number",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid multipart form",
		msg: UserMessage{
			Message: "The upload request was malformed",
			Action:  "Send the spreadsheet as multipart/form-data in the \"file\" field",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid dimension",
		msg: UserMessage{
			Message: "Records cannot be grouped by that column",
			Action:  "Use one of: status, unit, chapter, area, item, report_date",
			Code:    "REQ003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again later or with a smaller file",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// busyErr is implemented by errors signalling that the single ingestion slot is taken.
type busyErr interface {
	Busy() bool
}

// MapError converts an error into a user-facing message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var headerErr *HeaderNotFoundError
	if errors.As(err, &headerErr) {
		return UserMessage{
			Message: fmt.Sprintf("No header row containing %q was found", headerErr.Marker),
			Action:  "Check that the sheet has the inspection header row",
			Code:    "HDR001",
		}
	}

	var columnErr *MissingColumnError
	if errors.As(err, &columnErr) {
		return UserMessage{
			Message: fmt.Sprintf("Missing column(s): %s", strings.Join(columnErr.Roles, ", ")),
			Action:  "The header must include area, ITEM, DETALLE and CAPITULO columns",
			Code:    "COL001",
		}
	}

	if errors.Is(err, ErrUnsupportedFormat) {
		return UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload an .xlsx or .csv file",
			Code:    "SRC002",
		}
	}

	var sourceErr *SourceReadError
	if errors.As(err, &sourceErr) {
		return UserMessage{
			Message: "The source file could not be read",
			Action:  "Check that the file exists and is a valid workbook",
			Code:    "SRC001",
		}
	}

	var busy busyErr
	if errors.As(err, &busy) && busy.Busy() {
		return UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		}
	}

	if errors.Is(err, context.Canceled) {
		return patternMessage("context canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return patternMessage("context deadline exceeded")
	}

	errLower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errLower, p.pattern) {
			return p.msg
		}
	}

	return defaultMessage
}

func patternMessage(pattern string) UserMessage {
	for _, p := range errorPatterns {
		if p.pattern == pattern {
			return p.msg
		}
	}
	return defaultMessage
}

// IsInputError reports whether err was caused by the submitted data rather
// than by the system, i.e. retrying with the same input cannot succeed.
func IsInputError(err error) bool {
	var headerErr *HeaderNotFoundError
	var columnErr *MissingColumnError
	var sourceErr *SourceReadError
	return errors.As(err, &headerErr) || errors.As(err, &columnErr) || errors.As(err, &sourceErr)
}
