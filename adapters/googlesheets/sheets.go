// Package googlesheets implements sheetdb.Codec on top of the Google Sheets
// API. The document path is the spreadsheet ID.
package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/ideamans/go-sheetdb"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Codec opens spreadsheets through the Sheets API
type Codec struct {
	service *sheets.Service
	config  Config
}

var _ sheetdb.Codec = (*Codec)(nil)

// New creates a Google Sheets codec with the provided client options
func New(ctx context.Context, config *Config, opts ...option.ClientOption) (*Codec, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Codec{
		service: service,
		config:  config.withDefaults(),
	}, nil
}

// Open fetches the sheet list and every sheet's values of the spreadsheet
// identified by path. The returned document buffers changes until Save.
func (c *Codec) Open(ctx context.Context, path string) (sheetdb.Document, error) {
	ss, err := c.service.Spreadsheets.Get(path).
		Fields("spreadsheetId", "sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("failed to get spreadsheet", err)
	}

	doc := &Document{codec: c, spreadsheetID: path}
	ranges := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties == nil {
			continue
		}
		doc.sheets = append(doc.sheets, &Sheet{
			id:      s.Properties.SheetId,
			name:    s.Properties.Title,
			created: true,
		})
		ranges = append(ranges, quoteSheetName(s.Properties.Title))
	}
	if len(ranges) == 0 {
		return doc, nil
	}

	resp, err := c.service.Spreadsheets.Values.BatchGet(path).
		Ranges(ranges...).
		ValueRenderOption(c.config.ValueRenderOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("failed to get sheet data", err)
	}
	if len(resp.ValueRanges) != len(doc.sheets) {
		return nil, fmt.Errorf("got %d value ranges for %d sheets: %w", len(resp.ValueRanges), len(doc.sheets), sheetdb.ErrCodec)
	}

	for i, vr := range resp.ValueRanges {
		cells := make([][]string, len(vr.Values))
		for r, row := range vr.Values {
			cells[r] = make([]string, len(row))
			for col, v := range row {
				cells[r][col] = convertCellValue(v)
			}
		}
		doc.sheets[i].cells = cells
	}
	return doc, nil
}

// Document is an in-memory copy of a spreadsheet
type Document struct {
	codec         *Codec
	spreadsheetID string
	sheets        []*Sheet
	removed       []*Sheet
}

// SheetNames lists sheets in spreadsheet order
func (d *Document) SheetNames() []string {
	names := make([]string, len(d.sheets))
	for i, s := range d.sheets {
		names[i] = s.name
	}
	return names
}

// HasSheet reports whether the spreadsheet holds the named sheet
func (d *Document) HasSheet(name string) bool {
	return d.index(name) >= 0
}

func (d *Document) index(name string) int {
	return slices.IndexFunc(d.sheets, func(s *Sheet) bool { return s.name == name })
}

// Sheet returns the named sheet
func (d *Document) Sheet(name string) (sheetdb.Sheet, error) {
	i := d.index(name)
	if i < 0 {
		return nil, sheetdb.ErrSheetNotFound
	}
	return d.sheets[i], nil
}

// AddSheet appends an empty sheet, created on the next Save
func (d *Document) AddSheet(name string) (sheetdb.Sheet, error) {
	if d.HasSheet(name) {
		return nil, sheetdb.ErrSheetExists
	}
	s := &Sheet{name: name, dirty: true}
	d.sheets = append(d.sheets, s)
	return s, nil
}

// RemoveSheet drops the named sheet. A spreadsheet always keeps at least one
// sheet.
func (d *Document) RemoveSheet(name string) error {
	i := d.index(name)
	if i < 0 {
		return sheetdb.ErrSheetNotFound
	}
	if len(d.sheets) == 1 {
		return ErrLastSheet
	}
	if s := d.sheets[i]; s.created {
		d.removed = append(d.removed, s)
	}
	d.sheets = slices.Delete(d.sheets, i, i+1)
	return nil
}

// ReplaceSheet empties the named sheet, keeping its position and ID
func (d *Document) ReplaceSheet(name string) (sheetdb.Sheet, error) {
	i := d.index(name)
	if i < 0 {
		return nil, sheetdb.ErrSheetNotFound
	}
	s := d.sheets[i]
	s.cells = nil
	s.dirty = true
	return s, nil
}

// Save sends the buffered changes. Sheets are added and deleted in one
// batch update, then the values of every changed sheet are cleared and
// rewritten.
func (d *Document) Save(ctx context.Context, path string) error {
	if path != d.spreadsheetID {
		return fmt.Errorf("cannot save %s as %s: %w", d.spreadsheetID, path, ErrOtherSpreadsheet)
	}

	var clear []string
	for _, s := range d.sheets {
		if s.dirty && s.created {
			clear = append(clear, quoteSheetName(s.name))
		}
	}

	if err := d.applyStructure(ctx); err != nil {
		return err
	}

	svc := d.codec.service.Spreadsheets.Values
	if len(clear) > 0 {
		_, err := svc.BatchClear(d.spreadsheetID, &sheets.BatchClearValuesRequest{Ranges: clear}).Context(ctx).Do()
		if err != nil {
			return apiError("failed to clear sheets", err)
		}
	}

	var data []*sheets.ValueRange
	for _, s := range d.sheets {
		if !s.dirty || len(s.cells) == 0 {
			continue
		}
		data = append(data, &sheets.ValueRange{
			Range:  quoteSheetName(s.name) + "!A1",
			Values: s.values(),
		})
	}
	if len(data) > 0 {
		_, err := svc.BatchUpdate(d.spreadsheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: d.codec.config.ValueInputOption,
			Data:             data,
		}).Context(ctx).Do()
		if err != nil {
			return apiError("failed to update sheets", err)
		}
	}

	for _, s := range d.sheets {
		s.dirty = false
	}
	return nil
}

// applyStructure adds new sheets and deletes removed ones. A new sheet
// reusing the title of a removed one is added after the deletion.
func (d *Document) applyStructure(ctx context.Context) error {
	deleting := make(map[string]bool, len(d.removed))
	for _, s := range d.removed {
		deleting[s.name] = true
	}

	var requests []*sheets.Request
	added := make(map[int]*Sheet)
	addRequest := func(s *Sheet) {
		added[len(requests)] = s
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.name},
			},
		})
	}

	var late []*Sheet
	for _, s := range d.sheets {
		switch {
		case s.created:
		case deleting[s.name]:
			late = append(late, s)
		default:
			addRequest(s)
		}
	}
	for _, s := range d.removed {
		requests = append(requests, &sheets.Request{
			DeleteSheet: &sheets.DeleteSheetRequest{
				SheetId: s.id,
				// The first sheet usually has ID 0, which is omitted unless forced.
				ForceSendFields: []string{"SheetId"},
			},
		})
	}
	for _, s := range late {
		addRequest(s)
	}
	if len(requests) == 0 {
		return nil
	}

	resp, err := d.codec.service.Spreadsheets.BatchUpdate(d.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return apiError("failed to update spreadsheet", err)
	}

	for i, s := range added {
		s.created = true
		if i < len(resp.Replies) && resp.Replies[i].AddSheet != nil && resp.Replies[i].AddSheet.Properties != nil {
			s.id = resp.Replies[i].AddSheet.Properties.SheetId
		}
	}
	d.removed = nil
	return nil
}

// Close releases the document. Unsaved changes are discarded.
func (d *Document) Close() error {
	d.sheets = nil
	d.removed = nil
	return nil
}

// Sheet is one sheet of a spreadsheet, held as a grid of text cells
type Sheet struct {
	id      int64
	name    string
	created bool
	dirty   bool
	cells   [][]string
}

// Name returns the sheet title
func (s *Sheet) Name() string { return s.name }

// Rows yields a copy of each row of the grid
func (s *Sheet) Rows() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for _, row := range s.cells {
			if !yield(slices.Clone(row), nil) {
				return
			}
		}
	}
}

// SetCell stores value at the 1-based column and row, growing the grid as
// needed
func (s *Sheet) SetCell(col, row int, value string) error {
	if col < 1 || row < 1 {
		return fmt.Errorf("invalid cell position (%d, %d)", col, row)
	}
	for len(s.cells) < row {
		s.cells = append(s.cells, nil)
	}
	cells := s.cells[row-1]
	for len(cells) < col {
		cells = append(cells, "")
	}
	cells[col-1] = value
	s.cells[row-1] = cells
	s.dirty = true
	return nil
}

func (s *Sheet) values() [][]interface{} {
	values := make([][]interface{}, len(s.cells))
	for i, row := range s.cells {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return values
}

// quoteSheetName renders a sheet title for A1 notation
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// apiError marks err as a storage failure. A missing spreadsheet also
// matches fs.ErrNotExist.
func apiError(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w: %w", msg, sheetdb.ErrIO, fs.ErrNotExist, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, sheetdb.ErrIO, err)
}

// convertCellValue renders a Sheets API cell value as text
func convertCellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
