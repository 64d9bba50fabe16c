package workbook

import "errors"

var (
	// ErrMissingPath is returned when no workbook path is configured
	ErrMissingPath = errors.New("workbook path is required")

	// ErrMissingSpreadsheetID is returned when a Google Sheets book has no spreadsheet ID
	ErrMissingSpreadsheetID = errors.New("spreadsheet ID is required")

	// ErrSheetNotFound is returned when the configured sheet doesn't exist
	ErrSheetNotFound = errors.New("sheet not found")
)
