// Package core provides the business logic for preparing building-registry extracts.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When a run fails, the code can be quoted to support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
// A configured column is absent from a table. These are the only errors the
// pipeline itself raises; dirty values are always recovered locally.
//
//	SCH001 - Missing input column: The extract lacks a column the pipeline needs
//	         Action: Check that the extract matches the dataset's column layout
//	         Patterns: "missing required column for"
//
//	SCH002 - Mapping table columns: A mapping table lacks a required column
//	         Action: Check the header row of the named mapping file
//	         Patterns: "missing required columns"
//
//	SCH003 - Rename collision: Two columns would receive the same name
//	         Action: Fix the column-name mapping so every target is unique
//	         Patterns: "both map to this name"
//
// # Mapping Errors (MAP001-MAP099)
//
// Errors loading mapping files or the pipeline definition:
//
//	MAP001 - Mapping file missing: A mapping file could not be opened
//	         Action: Check the mappings directory setting
//	         Patterns: "open mapping"
//
//	MAP002 - Invalid definition: The pipeline definition is invalid
//	         Action: Fix the listed definition problems
//	         Patterns: "definition validation failed", "parse definition"
//
//	MAP003 - Code sheet missing: The code table workbook has no usable sheet
//	         Action: Check the code table sheet name
//	         Patterns: "sheet not found"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Action: Split the extract into smaller files
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure the file is comma-separated with consistent columns
//	          Patterns: "invalid csv", "parse csv"
//
//	FILE003 - No file: No file was selected
//	          Action: Please select an extract to convert
//	          Patterns: "no file provided"
//
//	FILE004 - Empty file: The uploaded file is empty
//	          Action: Please upload an extract with a header row
//	          Patterns: "empty file"
//
//	FILE005 - Unsupported format: The requested output format is not supported
//	          Action: Use csv, xlsx, sqlite or postgres
//	          Patterns: "unsupported format"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many runs in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many runs"
//
//	RUN002 - Run cancelled: The run was cancelled
//	         Action: Start a new run when ready
//	         Patterns: "context canceled"
//
//	RUN003 - Run timeout: The run took too long
//	         Action: Try a smaller extract or try again later
//	         Patterns: "context deadline exceeded"
//
//	RUN004 - Projection unavailable: The coordinate transformation could not be created
//	         Action: Check the PROJ installation and the configured CRS codes
//	         Patterns: "create projection"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB002 - Connection reset: Database connection was interrupted
//	        Action: Please try again
//	        Patterns: "connection reset"
//
//	DB003 - Database not configured: No database URL is set
//	        Action: Set DATABASE_URL or choose another output format
//	        Patterns: "database not configured"
//
// # Dataset Errors (DS001-DS099)
//
//	DS001 - Unknown dataset: The dataset is not registered
//	        Action: Choose one of the listed datasets
//	        Patterns: "unknown dataset"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid parameter: A request parameter could not be read
//	         Action: Check the area filter and demolished values
//	         Patterns: "invalid parameter"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
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

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Schema (SCH001-SCH003)
	// =========================================================================
	{
		pattern: "missing required column for",
		msg: UserMessage{
			Message: "The extract is missing a column the pipeline needs",
			Action:  "Check that the extract matches the dataset's column layout",
			Code:    "SCH001",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "A mapping table is missing a required column",
			Action:  "Check the header row of the named mapping file",
			Code:    "SCH002",
		},
	},
	{
		pattern: "both map to this name",
		msg: UserMessage{
			Message: "Two columns would be renamed to the same name",
			Action:  "Fix the column-name mapping so every target is unique",
			Code:    "SCH003",
		},
	},

	// =========================================================================
	// Mapping files (MAP001-MAP003)
	// =========================================================================
	{
		pattern: "open mapping",
		msg: UserMessage{
			Message: "A mapping file could not be opened",
			Action:  "Check the mappings directory setting",
			Code:    "MAP001",
		},
	},
	{
		pattern: "definition validation failed",
		msg: UserMessage{
			Message: "The pipeline definition is invalid",
			Action:  "Fix the listed definition problems",
			Code:    "MAP002",
		},
	},
	{
		pattern: "parse definition",
		msg: UserMessage{
			Message: "The pipeline definition could not be parsed",
			Action:  "Check the YAML syntax of the definition file",
			Code:    "MAP002",
		},
	},
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "The code table workbook has no usable sheet",
			Action:  "Check the code table sheet name",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// File handling (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the extract into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an extract to convert",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload an extract with a header row",
			Code:    "FILE004",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "The requested output format is not supported",
			Action:  "Use csv, xlsx, sqlite or postgres",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Runs (RUN001-RUN004)
	// =========================================================================
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "Too many runs in progress",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run took too long",
			Action:  "Try a smaller extract or try again later",
			Code:    "RUN003",
		},
	},
	{
		pattern: "create projection",
		msg: UserMessage{
			Message: "The coordinate transformation could not be created",
			Action:  "Check the PROJ installation and the configured CRS codes",
			Code:    "RUN004",
		},
	},

	// =========================================================================
	// Database (DB001-DB003)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "database not configured",
		msg: UserMessage{
			Message: "No database is configured",
			Action:  "Set DATABASE_URL or choose another output format",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Datasets (DS001)
	// =========================================================================
	{
		pattern: "unknown dataset",
		msg: UserMessage{
			Message: "The dataset is not registered",
			Action:  "Choose one of the listed datasets",
			Code:    "DS001",
		},
	},

	// =========================================================================
	// Request errors (REQ001)
	// =========================================================================
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A request parameter is invalid",
			Action:  "Check the area filter and demolished values",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Rate limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New(`schema error in input: column "Coordinate": missing required column for project_coordinates`)
//	msg := MapError(err)
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "The dataset is not registered (Code: DS001). Choose one of the listed datasets"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(err)
//	slog.Error("run failed", "error", ue.Technical)
//	fmt.Println(ue.Error())   // "The extract is missing a column the pipeline needs"
//	fmt.Println(ue.User.Code) // "SCH001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
