package sheetdb

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is wrapped around failures of the underlying storage.
	ErrIO = errors.New("storage i/o failure")

	// ErrCodec is wrapped around malformed or unreadable spreadsheet documents.
	ErrCodec = errors.New("spreadsheet codec failure")

	ErrSheetNotFound = errors.New("sheet not found")
	ErrSheetExists   = errors.New("sheet already exists")
	ErrNoHeaders     = errors.New("no headers found")

	ErrClosed          = errors.New("database is closed")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrMissingFilePath = errors.New("file path is required")
)

// SheetError reports a failure tied to a named sheet.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

func sheetError(sheet string, err error) error {
	return &SheetError{Sheet: sheet, Err: err}
}
