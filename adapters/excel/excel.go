// Package excel implements sheetdb.Codec for .xlsx workbooks using excelize.
package excel

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"unicode/utf8"

	"github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/storage"
	"github.com/xuri/excelize/v2"
)

// Config holds configuration for the Excel codec
type Config struct {
	Storage storage.Storage  // Where workbooks are read from and written to (default: local filesystem)
	Options excelize.Options // Passed to excelize when opening and creating workbooks
}

// Codec opens .xlsx workbooks
type Codec struct {
	config Config
}

var (
	_ sheetdb.Codec   = (*Codec)(nil)
	_ sheetdb.Creator = (*Codec)(nil)
)

// New creates a new Excel codec. A nil config uses local storage.
func New(config *Config) *Codec {
	c := Config{}
	if config != nil {
		c = *config
	}
	if c.Storage == nil {
		c.Storage = storage.NewLocal("")
	}
	return &Codec{config: c}
}

// Open reads the workbook stored at path
func (c *Codec) Open(ctx context.Context, path string) (sheetdb.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rc, err := c.config.Storage.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w: %w", sheetdb.ErrIO, err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc, c.config.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel file: %w: %w", sheetdb.ErrCodec, err)
	}
	return &Document{file: f, storage: c.config.Storage}, nil
}

// Create starts a workbook holding one empty sheet called sheet
func (c *Codec) Create(ctx context.Context, sheet string) (sheetdb.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f := excelize.NewFile(c.config.Options)
	if defaultSheet := f.GetSheetName(0); defaultSheet != sheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to name sheet: %w: %w", sheetdb.ErrCodec, err)
		}
	}
	return &Document{file: f, storage: c.config.Storage}, nil
}

// Document is an opened workbook
type Document struct {
	file    *excelize.File
	storage storage.Storage
}

// SheetNames lists sheets in workbook order
func (d *Document) SheetNames() []string {
	return d.file.GetSheetList()
}

// HasSheet reports whether the workbook holds the named sheet
func (d *Document) HasSheet(name string) bool {
	idx, err := d.file.GetSheetIndex(name)
	return err == nil && idx != -1
}

// Sheet returns the named sheet
func (d *Document) Sheet(name string) (sheetdb.Sheet, error) {
	if !d.HasSheet(name) {
		return nil, sheetdb.ErrSheetNotFound
	}
	return &Sheet{file: d.file, name: name}, nil
}

// AddSheet appends an empty sheet
func (d *Document) AddSheet(name string) (sheetdb.Sheet, error) {
	if d.HasSheet(name) {
		return nil, sheetdb.ErrSheetExists
	}
	if _, err := d.file.NewSheet(name); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w: %w", sheetdb.ErrCodec, err)
	}
	return &Sheet{file: d.file, name: name}, nil
}

// RemoveSheet deletes the named sheet. excelize keeps at least one sheet in
// a workbook, so removing the last one fails with ErrLastSheet.
func (d *Document) RemoveSheet(name string) error {
	if !d.HasSheet(name) {
		return sheetdb.ErrSheetNotFound
	}
	if len(d.file.GetSheetList()) == 1 {
		return ErrLastSheet
	}
	if err := d.file.DeleteSheet(name); err != nil {
		return fmt.Errorf("failed to delete sheet: %w: %w", sheetdb.ErrCodec, err)
	}
	return nil
}

// ReplaceSheet swaps the named sheet for a new empty one at the same position
// in the workbook. Styles and column widths of the old sheet are dropped.
func (d *Document) ReplaceSheet(name string) (sheetdb.Sheet, error) {
	if !d.HasSheet(name) {
		return nil, sheetdb.ErrSheetNotFound
	}

	list := d.file.GetSheetList()
	pos := slices.Index(list, name)
	active := d.file.GetSheetName(d.file.GetActiveSheetIndex()) == name

	// The blank sheet is added before the old one is deleted so the workbook
	// never drops to zero sheets.
	tmp := d.scratchName()
	if _, err := d.file.NewSheet(tmp); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w: %w", sheetdb.ErrCodec, err)
	}
	if err := d.file.DeleteSheet(name); err != nil {
		return nil, fmt.Errorf("failed to delete sheet: %w: %w", sheetdb.ErrCodec, err)
	}
	if err := d.file.SetSheetName(tmp, name); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w: %w", sheetdb.ErrCodec, err)
	}
	if pos >= 0 && pos < len(list)-1 {
		if err := d.file.MoveSheet(name, list[pos+1]); err != nil {
			return nil, fmt.Errorf("failed to move sheet: %w: %w", sheetdb.ErrCodec, err)
		}
	}
	if active {
		if idx, err := d.file.GetSheetIndex(name); err == nil && idx >= 0 {
			d.file.SetActiveSheet(idx)
		}
	}
	return &Sheet{file: d.file, name: name}, nil
}

func (d *Document) scratchName() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("sheetdb-tmp-%d", i)
		if !d.HasSheet(name) {
			return name
		}
	}
}

// Save writes the workbook to path through the configured storage
func (d *Document) Save(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	buf, err := d.file.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to render Excel file: %w: %w", sheetdb.ErrCodec, err)
	}
	if err := d.storage.Write(ctx, path, buf); err != nil {
		return fmt.Errorf("failed to save Excel file: %w: %w", sheetdb.ErrIO, err)
	}
	return nil
}

// Close releases the workbook
func (d *Document) Close() error {
	return d.file.Close()
}

// Sheet is one worksheet of a workbook
type Sheet struct {
	file *excelize.File
	name string
}

// Name returns the worksheet name
func (s *Sheet) Name() string { return s.name }

// Rows streams the worksheet's rows as text
func (s *Sheet) Rows() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		rows, err := s.file.Rows(s.name)
		if err != nil {
			yield(nil, fmt.Errorf("failed to get rows: %w: %w", sheetdb.ErrCodec, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				yield(nil, fmt.Errorf("failed to read row: %w: %w", sheetdb.ErrCodec, err))
				return
			}
			if !yield(slices.Clone(cols), nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(nil, fmt.Errorf("failed to read rows: %w: %w", sheetdb.ErrCodec, err))
		}
	}
}

// SetCell stores value as a text cell at the 1-based column and row. Text
// longer than excelize.TotalCellChars is rejected, since excelize would cut
// it.
func (s *Sheet) SetCell(col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell position: %w", err)
	}
	if n := utf8.RuneCountInString(value); n > excelize.TotalCellChars {
		return fmt.Errorf("cell %s holds %d characters, limit is %d: %w", cell, n, excelize.TotalCellChars, sheetdb.ErrCodec)
	}
	if err := s.file.SetCellStr(s.name, cell, value); err != nil {
		return fmt.Errorf("failed to write %s: %w: %w", cell, sheetdb.ErrCodec, err)
	}
	return nil
}
