package sheetdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const maxBackoff = 2 * time.Second

// DB exposes one sheet of a spreadsheet document as a table. Rows are
// cached in memory; every mutation is written back to the document before
// the call returns.
//
// After Close, methods that return an error fail with ErrClosed. The cache
// readers (Select, ColumnValue, ColumnDataCount, Rows, Columns, Len) have no
// error result and read a closed handle as an empty table.
type DB struct {
	config Config
	codec  Codec
	logger *slog.Logger

	mu     sync.Mutex
	table  *table
	dirty  bool
	closed bool
}

// Open loads the configured sheet through codec.
//
// It fails with ErrSheetNotFound if the sheet does not exist and with
// ErrNoHeaders if the sheet has no rows at all. With CreateIfMissing set, a
// missing document is created instead.
func Open(ctx context.Context, codec Codec, config *Config) (*DB, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()
	db := &DB{
		config: cfg,
		codec:  codec,
		logger: cfg.Logger.With("file", cfg.FilePath, "sheet", cfg.SheetName),
	}

	err := db.load(ctx)
	if err != nil && cfg.CreateIfMissing && errors.Is(err, fs.ErrNotExist) {
		err = db.create(ctx)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// load replaces the cache with the sheet's current content.
func (db *DB) load(ctx context.Context) error {
	var t *table
	err := db.withRetry(ctx, "load", func() error {
		doc, err := db.codec.Open(ctx, db.config.FilePath)
		if err != nil {
			return err
		}
		defer doc.Close()

		t, err = loadTable(doc, db.config.SheetName)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load table: %w", err)
	}

	db.table = t
	db.dirty = false
	db.logger.DebugContext(ctx, "Loaded table", "rows", len(t.rows), "columns", len(t.schema))
	return nil
}

// create writes a new document holding the configured sheet and header.
func (db *DB) create(ctx context.Context) error {
	creator, ok := db.codec.(Creator)
	if !ok {
		return fmt.Errorf("codec %T cannot create documents", db.codec)
	}

	t := &table{schema: uniqueColumns(db.config.Columns)}
	err := db.withRetry(ctx, "create", func() error {
		doc, err := creator.Create(ctx, db.config.SheetName)
		if err != nil {
			return err
		}
		defer doc.Close()

		sheet, err := doc.Sheet(db.config.SheetName)
		if err != nil {
			return sheetError(db.config.SheetName, err)
		}
		if err := writeSheet(sheet, t.schema, nil); err != nil {
			return sheetError(db.config.SheetName, err)
		}
		return doc.Save(ctx, db.config.FilePath)
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	db.table = t
	db.dirty = false
	db.logger.InfoContext(ctx, "Created document", "columns", len(t.schema))
	return nil
}

// persist rewrites the sheet from the cache. On failure the cache keeps the
// unsaved state and the handle stays dirty.
func (db *DB) persist(ctx context.Context) error {
	db.dirty = true
	name := db.config.SheetName
	err := db.withRetry(ctx, "save", func() error {
		doc, err := db.codec.Open(ctx, db.config.FilePath)
		if err != nil {
			return err
		}
		defer doc.Close()

		sheet, err := doc.ReplaceSheet(name)
		if err != nil {
			return sheetError(name, err)
		}
		if err := writeSheet(sheet, db.table.schema, db.table.rows); err != nil {
			return sheetError(name, err)
		}
		return doc.Save(ctx, db.config.FilePath)
	})
	if err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}

	db.dirty = false
	db.logger.DebugContext(ctx, "Saved table", "rows", len(db.table.rows), "columns", len(db.table.schema))
	return nil
}

// withRetry runs fn, retrying storage failures with exponential backoff up
// to MaxRetries times.
func (db *DB) withRetry(ctx context.Context, op string, fn func() error) error {
	for i := 0; ; i++ {
		err := fn()
		if err == nil || i >= db.config.MaxRetries || !retryable(err) {
			return err
		}

		backoff := retryDelay(i, db.config.RetryInterval)
		db.logger.WarnContext(ctx, "Retrying after storage failure", "op", op, "attempt", i+1, "backoff", backoff, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryDelay returns the wait before retry attempt (0-based), doubling
// interval up to max(maxBackoff, interval).
func retryDelay(attempt int, interval time.Duration) time.Duration {
	limit := max(maxBackoff, interval)
	d := interval
	for ; attempt > 0 && d > 0 && d < limit; attempt-- {
		d *= 2
	}
	return min(d, limit)
}

func retryable(err error) bool {
	return errors.Is(err, ErrIO) && !errors.Is(err, fs.ErrNotExist)
}

// Path returns the document location.
func (db *DB) Path() string { return db.config.FilePath }

// SheetName returns the sheet backing the table.
func (db *DB) SheetName() string { return db.config.SheetName }

// Select returns clones of the rows matching every column of query, in
// stored order. A nil or empty query matches every row. ok is false when no
// row matched, and always on a closed handle.
func (db *DB) Select(query *Row) (rows []*Row, ok bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, false
	}

	for _, i := range db.table.match(query) {
		rows = append(rows, db.table.rows[i].Clone())
	}
	return rows, len(rows) > 0
}

// Query searches for rows matching the given conditions
func (db *DB) Query(query Query) ([]*Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	results := ApplyQuery(db.table.rows, query)
	for i, row := range results {
		results[i] = row.Clone()
	}
	return results, nil
}

// ColumnValue returns targetColumn of the first row whose searchColumn
// equals searchValue. ok is false when no row matches, the matching row
// lacks targetColumn or the handle is closed.
func (db *DB) ColumnValue(searchColumn string, searchValue Value, targetColumn string) (v Value, ok bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return Value{}, false
	}

	for _, row := range db.table.rows {
		if got, ok := row.Get(searchColumn); ok && got == searchValue {
			return row.Get(targetColumn)
		}
	}
	return Value{}, false
}

// ColumnDataCount counts rows whose value in column is not blank. A closed
// handle counts zero.
func (db *DB) ColumnDataCount(column string) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	n := 0
	if db.closed {
		return n
	}
	for _, row := range db.table.rows {
		if v, ok := row.Get(column); ok && !v.IsBlank() {
			n++
		}
	}
	return n
}

// Rows returns clones of every cached row.
func (db *DB) Rows() []*Row {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	rows := make([]*Row, len(db.table.rows))
	for i, row := range db.table.rows {
		rows[i] = row.Clone()
	}
	return rows
}

// Columns returns the header written on save.
func (db *DB) Columns() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	return slices.Clone(db.table.schema)
}

// Len returns the number of cached rows.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0
	}
	return len(db.table.rows)
}

// Dirty reports whether the cache holds changes that failed to save.
func (db *DB) Dirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dirty
}

// Insert appends a copy of row and saves. Columns are not checked against
// the header; new columns widen it.
func (db *DB) Insert(row *Row) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	db.table.insert(row)
	return db.persist(context.Background())
}

// Update merges patch into every row matching query and saves, even when
// nothing matched. It returns the number of updated rows.
func (db *DB) Update(query, patch *Row) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0, ErrClosed
	}

	n := db.table.update(query, patch)
	return n, db.persist(context.Background())
}

// Delete removes every row matching query and saves. Rows lacking a queried
// column are kept. It returns the number of removed rows.
func (db *DB) Delete(query *Row) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0, ErrClosed
	}

	n := db.table.delete(query)
	return n, db.persist(context.Background())
}

// AddColumn sets name to def on every row lacking it, then saves. Pass the
// zero Value for an empty default.
func (db *DB) AddColumn(name string, def Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	db.table.addColumn(name, def)
	return db.persist(context.Background())
}

// RemoveColumn deletes name from every row, then saves.
func (db *DB) RemoveColumn(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	db.table.removeColumn(name)
	return db.persist(context.Background())
}

// AddSheet creates a new sheet in the document, seeded with rows when
// given. The header is the union of the rows' columns. It refuses to
// overwrite an existing sheet and leaves the cached table untouched.
func (db *DB) AddSheet(name string, rows []*Row) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	ctx := context.Background()
	err := db.withRetry(ctx, "add sheet", func() error {
		doc, err := db.codec.Open(ctx, db.config.FilePath)
		if err != nil {
			return err
		}
		defer doc.Close()

		if doc.HasSheet(name) {
			return sheetError(name, ErrSheetExists)
		}
		sheet, err := doc.AddSheet(name)
		if err != nil {
			return sheetError(name, err)
		}
		if err := writeSheet(sheet, unionColumns(rows), rows); err != nil {
			return sheetError(name, err)
		}
		return doc.Save(ctx, db.config.FilePath)
	})
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	db.logger.InfoContext(ctx, "Added sheet", "name", name, "rows", len(rows))
	return nil
}

// SheetExists reports whether the document currently holds a sheet called
// name.
func (db *DB) SheetExists(name string) (bool, error) {
	var exists bool
	err := db.readDocument(func(doc Document) {
		exists = doc.HasSheet(name)
	})
	return exists, err
}

// SheetNames lists the document's sheets in order.
func (db *DB) SheetNames() ([]string, error) {
	var names []string
	err := db.readDocument(func(doc Document) {
		names = doc.SheetNames()
	})
	return names, err
}

func (db *DB) readDocument(fn func(Document)) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	ctx := context.Background()
	return db.withRetry(ctx, "read", func() error {
		doc, err := db.codec.Open(ctx, db.config.FilePath)
		if err != nil {
			return err
		}
		defer doc.Close()

		fn(doc)
		return nil
	})
}

// Refresh discards the cache, including unsaved changes, and reloads the
// sheet. The previous cache is kept if loading fails.
func (db *DB) Refresh(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	return db.load(ctx)
}

// Save writes the cache to the document.
func (db *DB) Save(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	return db.persist(ctx)
}

// Close releases the cache. If a previous save failed, Close tries once more
// and reports the outcome.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}

	var err error
	if db.dirty {
		if err = db.persist(context.Background()); err != nil {
			err = fmt.Errorf("failed to save on close: %w", err)
		}
	}

	db.closed = true
	db.table = &table{}
	return err
}
