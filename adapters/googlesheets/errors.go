package googlesheets

import "errors"

var (
	// ErrLastSheet is returned when removing the only sheet of a spreadsheet.
	ErrLastSheet = errors.New("cannot remove the last sheet of a spreadsheet")

	// ErrOtherSpreadsheet is returned when saving a document under a
	// different spreadsheet ID than it was opened from.
	ErrOtherSpreadsheet = errors.New("document belongs to another spreadsheet")
)
