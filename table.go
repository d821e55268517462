package sheetdb

import (
	"fmt"
	"slices"
)

// table is the in-memory copy of one sheet: data rows in file order plus the
// ordered header that is written back as row 1.
type table struct {
	schema []string
	rows   []*Row
}

// loadTable reads a sheet into a table. Row 1 provides the column names.
func loadTable(doc Document, name string) (*table, error) {
	sheet, err := doc.Sheet(name)
	if err != nil {
		return nil, sheetError(name, err)
	}

	var (
		headers []string
		seen    bool
		t       = &table{}
	)
	for cells, err := range sheet.Rows() {
		if err != nil {
			return nil, sheetError(name, fmt.Errorf("failed to read rows: %w", err))
		}
		if !seen {
			seen = true
			headers = cells
			t.schema = uniqueColumns(headers)
			continue
		}
		// Later duplicates of a header name overwrite earlier ones, so the
		// value comes from the last duplicate's column.
		row := NewRow()
		for _, col := range t.schema {
			row.Set(col, Text(""))
		}
		for i, col := range headers {
			if i < len(cells) {
				row.Set(col, FromRaw(cells[i]))
			}
		}
		t.rows = append(t.rows, row)
	}

	if !seen {
		return nil, sheetError(name, ErrNoHeaders)
	}
	return t, nil
}

// writeSheet serializes header and rows into an empty sheet. Missing cells
// are written as empty text.
func writeSheet(sheet Sheet, schema []string, rows []*Row) error {
	if len(schema) == 0 {
		return nil
	}
	for i, col := range schema {
		if err := sheet.SetCell(i+1, 1, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for r, row := range rows {
		for i, col := range schema {
			v, _ := row.Get(col)
			if err := sheet.SetCell(i+1, r+2, v.Raw()); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}
	return nil
}

// uniqueColumns drops repeated names, keeping the first position of each.
func uniqueColumns(cols []string) []string {
	result := make([]string, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if !seen[col] {
			seen[col] = true
			result = append(result, col)
		}
	}
	return result
}

// unionColumns returns the columns of every row, in order of first
// appearance.
func unionColumns(rows []*Row) []string {
	var schema []string
	for _, row := range rows {
		schema = extendSchema(schema, row)
	}
	return schema
}

// extendSchema appends the columns of row that schema does not have yet.
func extendSchema(schema []string, row *Row) []string {
	for col := range row.All() {
		if !slices.Contains(schema, col) {
			schema = append(schema, col)
		}
	}
	return schema
}

func (t *table) match(query *Row) []int {
	var idx []int
	for i, row := range t.rows {
		if row.Matches(query) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (t *table) insert(row *Row) {
	row = row.Clone()
	t.rows = append(t.rows, row)
	t.schema = extendSchema(t.schema, row)
}

func (t *table) update(query, patch *Row) int {
	idx := t.match(query)
	for _, i := range idx {
		t.rows[i].Merge(patch)
	}
	if len(idx) > 0 {
		t.schema = extendSchema(t.schema, patch)
	}
	return len(idx)
}

func (t *table) delete(query *Row) int {
	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(row *Row) bool {
		return row.Matches(query)
	})
	return before - len(t.rows)
}

func (t *table) addColumn(name string, def Value) {
	for _, row := range t.rows {
		if !row.Has(name) {
			row.Set(name, def)
		}
	}
	if !slices.Contains(t.schema, name) {
		t.schema = append(t.schema, name)
	}
}

func (t *table) removeColumn(name string) {
	for _, row := range t.rows {
		row.Delete(name)
	}
	t.schema = slices.DeleteFunc(t.schema, func(col string) bool {
		return col == name
	})
}
