package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/ideamans/go-sheetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheet struct {
	id     int64
	title  string
	values [][]interface{}
}

// fakeSpreadsheet serves the subset of the Sheets API used by the codec.
type fakeSpreadsheet struct {
	mu         sync.Mutex
	id         string
	sheets     []*fakeSheet
	nextID     int64
	calls      []string
	cleared    []string
	inputOpt   string
	failWrites bool
}

func newFakeSpreadsheet(id string, sheets ...*fakeSheet) *fakeSpreadsheet {
	f := &fakeSpreadsheet{id: id, sheets: sheets}
	for _, s := range sheets {
		f.nextID = max(f.nextID, s.id+1)
	}
	return f
}

func (f *fakeSpreadsheet) find(title string) *fakeSheet {
	for _, s := range f.sheets {
		if s.title == title {
			return s
		}
	}
	return nil
}

func (f *fakeSpreadsheet) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sheets {
		out = append(out, s.title)
	}
	return out
}

func (f *fakeSpreadsheet) text(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(title)
	if s == nil {
		return nil
	}
	out := make([][]string, len(s.values))
	for i, row := range s.values {
		for _, v := range row {
			out[i] = append(out[i], fmt.Sprint(v))
		}
	}
	return out
}

func (f *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	f.calls = append(f.calls, r.Method+" "+path)

	switch path {
	case f.id:
		resp := &sheets.Spreadsheet{SpreadsheetId: f.id}
		for _, s := range f.sheets {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: s.id, Title: s.title},
			})
		}
		writeJSON(w, resp)

	case f.id + "/values:batchGet":
		resp := &sheets.BatchGetValuesResponse{SpreadsheetId: f.id}
		for _, rng := range r.URL.Query()["ranges"] {
			s := f.find(sheetTitle(rng))
			if s == nil {
				writeError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
				return
			}
			resp.ValueRanges = append(resp.ValueRanges, &sheets.ValueRange{Range: rng, Values: s.values})
		}
		writeJSON(w, resp)

	case f.id + ":batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp := &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: f.id}
		for _, q := range req.Requests {
			switch {
			case q.AddSheet != nil:
				title := q.AddSheet.Properties.Title
				if f.find(title) != nil {
					writeError(w, http.StatusBadRequest, "A sheet with the name "+title+" already exists")
					return
				}
				s := &fakeSheet{id: f.nextID, title: title}
				f.nextID++
				f.sheets = append(f.sheets, s)
				resp.Replies = append(resp.Replies, &sheets.Response{
					AddSheet: &sheets.AddSheetResponse{
						Properties: &sheets.SheetProperties{SheetId: s.id, Title: s.title},
					},
				})
			case q.DeleteSheet != nil:
				i := slices.IndexFunc(f.sheets, func(s *fakeSheet) bool { return s.id == q.DeleteSheet.SheetId })
				if i < 0 {
					writeError(w, http.StatusBadRequest, "No sheet with id")
					return
				}
				f.sheets = slices.Delete(f.sheets, i, i+1)
				resp.Replies = append(resp.Replies, &sheets.Response{})
			}
		}
		writeJSON(w, resp)

	case f.id + "/values:batchClear":
		var req sheets.BatchClearValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, rng := range req.Ranges {
			f.cleared = append(f.cleared, sheetTitle(rng))
			if s := f.find(sheetTitle(rng)); s != nil {
				s.values = nil
			}
		}
		writeJSON(w, &sheets.BatchClearValuesResponse{SpreadsheetId: f.id})

	case f.id + "/values:batchUpdate":
		if f.failWrites {
			writeError(w, http.StatusForbidden, "The caller does not have permission")
			return
		}
		var req sheets.BatchUpdateValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.inputOpt = req.ValueInputOption
		for _, vr := range req.Data {
			s := f.find(sheetTitle(vr.Range))
			if s == nil {
				writeError(w, http.StatusBadRequest, "Unable to parse range: "+vr.Range)
				return
			}
			s.values = vr.Values
		}
		writeJSON(w, &sheets.BatchUpdateValuesResponse{SpreadsheetId: f.id})

	default:
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
	}
}

func sheetTitle(rng string) string {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[:i]
	}
	if len(rng) >= 2 && strings.HasPrefix(rng, "'") && strings.HasSuffix(rng, "'") {
		rng = strings.ReplaceAll(rng[1:len(rng)-1], "''", "'")
	}
	return rng
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func newTestCodec(t *testing.T, fake *fakeSpreadsheet) *Codec {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	codec, err := New(context.Background(), nil, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return codec
}

func usersFake() *fakeSpreadsheet {
	return newFakeSpreadsheet("test-id",
		&fakeSheet{id: 0, title: "old", values: [][]interface{}{{"x"}, {"1"}}},
		&fakeSheet{id: 7, title: "users", values: [][]interface{}{
			{"name", "age", "active"},
			{"John Doe", 30.0, true},
			{"Jane Smith", "25"},
		}},
		&fakeSheet{id: 9, title: "keep", values: [][]interface{}{{"k"}, {"v"}}},
	)
}

func collectRows(t *testing.T, s sheetdb.Sheet) [][]string {
	t.Helper()
	var out [][]string
	for cells, err := range s.Rows() {
		require.NoError(t, err)
		out = append(out, cells)
	}
	return out
}

func TestCodec_Open(t *testing.T) {
	codec := newTestCodec(t, usersFake())

	doc, err := codec.Open(context.Background(), "test-id")
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, []string{"old", "users", "keep"}, doc.SheetNames())
	assert.True(t, doc.HasSheet("users"))
	assert.False(t, doc.HasSheet("missing"))

	sheet, err := doc.Sheet("users")
	require.NoError(t, err)
	assert.Equal(t, "users", sheet.Name())
	assert.Equal(t, [][]string{
		{"name", "age", "active"},
		{"John Doe", "30", "TRUE"},
		{"Jane Smith", "25"},
	}, collectRows(t, sheet))

	_, err = doc.Sheet("missing")
	assert.ErrorIs(t, err, sheetdb.ErrSheetNotFound)
}

func TestCodec_OpenMissingSpreadsheet(t *testing.T) {
	codec := newTestCodec(t, usersFake())

	_, err := codec.Open(context.Background(), "missing-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, sheetdb.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDocument_Save(t *testing.T) {
	fake := usersFake()
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	doc, err := codec.Open(ctx, "test-id")
	require.NoError(t, err)
	defer doc.Close()

	sheet, err := doc.ReplaceSheet("users")
	require.NoError(t, err)
	assert.Empty(t, collectRows(t, sheet))
	require.NoError(t, sheet.SetCell(1, 1, "name"))
	require.NoError(t, sheet.SetCell(2, 1, "age"))
	require.NoError(t, sheet.SetCell(1, 2, "John Doe"))
	require.NoError(t, sheet.SetCell(2, 2, "30"))

	added, err := doc.AddSheet("O'Brien")
	require.NoError(t, err)
	require.NoError(t, added.SetCell(1, 1, "id"))

	require.NoError(t, doc.RemoveSheet("old"))
	require.NoError(t, doc.Save(ctx, "test-id"))

	assert.Equal(t, []string{"users", "keep", "O'Brien"}, fake.titles())
	assert.Equal(t, [][]string{{"name", "age"}, {"John Doe", "30"}}, fake.text("users"))
	assert.Equal(t, [][]string{{"id"}}, fake.text("O'Brien"))
	assert.Equal(t, [][]string{{"k"}, {"v"}}, fake.text("keep"))
	assert.Equal(t, []string{"users"}, fake.cleared)
	assert.Equal(t, "RAW", fake.inputOpt)

	// The added sheet now carries the ID assigned by the server.
	d := doc.(*Document)
	assert.Equal(t, int64(10), d.sheets[2].id)
	require.NoError(t, doc.RemoveSheet("O'Brien"))
	require.NoError(t, doc.Save(ctx, "test-id"))
	assert.Equal(t, []string{"users", "keep"}, fake.titles())
}

func TestDocument_SaveReaddedSheet(t *testing.T) {
	fake := usersFake()
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	doc, err := codec.Open(ctx, "test-id")
	require.NoError(t, err)
	defer doc.Close()

	require.NoError(t, doc.RemoveSheet("old"))
	sheet, err := doc.AddSheet("old")
	require.NoError(t, err)
	require.NoError(t, sheet.SetCell(1, 1, "fresh"))
	require.NoError(t, doc.Save(ctx, "test-id"))

	assert.Equal(t, []string{"users", "keep", "old"}, fake.titles())
	assert.Equal(t, [][]string{{"fresh"}}, fake.text("old"))
}

func TestDocument_SaveWithoutChanges(t *testing.T) {
	fake := usersFake()
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	doc, err := codec.Open(ctx, "test-id")
	require.NoError(t, err)
	defer doc.Close()

	calls := len(fake.calls)
	require.NoError(t, doc.Save(ctx, "test-id"))
	assert.Len(t, fake.calls, calls)
}

func TestDocument_SaveToOtherSpreadsheet(t *testing.T) {
	fake := usersFake()
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	doc, err := codec.Open(ctx, "test-id")
	require.NoError(t, err)
	defer doc.Close()

	calls := len(fake.calls)
	err = doc.Save(ctx, "other-id")
	assert.ErrorIs(t, err, ErrOtherSpreadsheet)
	assert.Len(t, fake.calls, calls)
}

func TestDocument_SaveFailure(t *testing.T) {
	fake := usersFake()
	fake.failWrites = true
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	doc, err := codec.Open(ctx, "test-id")
	require.NoError(t, err)
	defer doc.Close()

	sheet, err := doc.ReplaceSheet("users")
	require.NoError(t, err)
	require.NoError(t, sheet.SetCell(1, 1, "name"))

	err = doc.Save(ctx, "test-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, sheetdb.ErrIO)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestDocument_SheetManagementErrors(t *testing.T) {
	codec := newTestCodec(t, newFakeSpreadsheet("test-id", &fakeSheet{id: 0, title: "only"}))

	doc, err := codec.Open(context.Background(), "test-id")
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.AddSheet("only")
	assert.ErrorIs(t, err, sheetdb.ErrSheetExists)
	_, err = doc.ReplaceSheet("missing")
	assert.ErrorIs(t, err, sheetdb.ErrSheetNotFound)
	assert.ErrorIs(t, doc.RemoveSheet("missing"), sheetdb.ErrSheetNotFound)
	assert.ErrorIs(t, doc.RemoveSheet("only"), ErrLastSheet)

	sheet, err := doc.Sheet("only")
	require.NoError(t, err)
	assert.Error(t, sheet.SetCell(0, 1, "x"))
	assert.Error(t, sheet.SetCell(1, 0, "x"))
}

func TestCodec_WithDatabase(t *testing.T) {
	fake := newFakeSpreadsheet("test-id", &fakeSheet{id: 0, title: "users", values: [][]interface{}{
		{"name", "age"},
		{"John Doe", "20"},
	}})
	codec := newTestCodec(t, fake)
	ctx := context.Background()

	cfg := DefaultDatabaseConfig("test-id", "users")
	cfg.MaxRetries = 0
	db, err := sheetdb.Open(ctx, codec, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert(sheetdb.TextRow("name", "Jane Doe", "age", "29")))
	n, err := db.Update(sheetdb.TextRow("name", "John Doe"), sheetdb.TextRow("age", "21"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, [][]string{
		{"name", "age"},
		{"John Doe", "21"},
		{"Jane Doe", "29"},
	}, fake.text("users"))

	exists, err := db.SheetExists("users")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConvertCellValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"text", "text"},
		{30.0, "30"},
		{99.5, "99.5"},
		{true, "TRUE"},
		{false, "FALSE"},
		{nil, ""},
		{int64(3), "3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, convertCellValue(tt.in), "convertCellValue(%v)", tt.in)
	}
}
