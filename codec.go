package sheetdb

import (
	"context"
	"iter"
)

// Codec opens spreadsheet documents. Implementations live under adapters/.
type Codec interface {
	// Open reads the document stored at path.
	Open(ctx context.Context, path string) (Document, error)
}

// Creator is implemented by codecs that can start a new document from
// scratch. The new document holds a single empty sheet.
type Creator interface {
	Create(ctx context.Context, sheet string) (Document, error)
}

// Document is an opened spreadsheet. Changes stay in memory until Save.
type Document interface {
	// SheetNames lists sheets in document order.
	SheetNames() []string
	HasSheet(name string) bool

	// Sheet returns the named sheet or an error wrapping ErrSheetNotFound.
	Sheet(name string) (Sheet, error)

	// AddSheet appends an empty sheet. It fails with ErrSheetExists if the
	// name is taken.
	AddSheet(name string) (Sheet, error)

	// RemoveSheet drops the named sheet.
	RemoveSheet(name string) error

	// ReplaceSheet discards every cell of the named sheet and returns it empty.
	ReplaceSheet(name string) (Sheet, error)

	// Save persists the whole document to path.
	Save(ctx context.Context, path string) error

	Close() error
}

// Sheet is one named page of a Document.
type Sheet interface {
	Name() string

	// Rows iterates rows top to bottom; each row holds raw cell text left to
	// right.
	Rows() iter.Seq2[[]string, error]

	// SetCell writes value at the 1-based column and row.
	SetCell(col, row int, value string) error
}
