package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/ideamans/go-sheetdb"
	"gopkg.in/yaml.v3"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, db *sheetdb.DB, args []string) (any, error)
}

var commands []command

func init() {
	commands = []command{
		{"select", "select [col=val...]", "Print rows matching every assignment", runSelect},
		{"get", "get <col> <val> <target>", "Print target of the first row where col equals val", runGet},
		{"insert", "insert col=val...", "Append a row", runInsert},
		{"update", "update col=val... set col=val...", "Merge the set assignments into matching rows", runUpdate},
		{"delete", "delete col=val...", "Remove matching rows", runDelete},
		{"count", "count <col>", "Count rows with a non blank value in col", runCount},
		{"add-column", "add-column <name> [default]", "Add a column to every row", runAddColumn},
		{"remove-column", "remove-column <name>", "Remove a column from every row", runRemoveColumn},
		{"sheets", "sheets", "List the sheets of the document", runSheets},
		{"exists", "exists <name>", "Report whether a sheet exists", runExists},
		{"add-sheet", "add-sheet <name> [col=val...]", "Add a sheet, optionally seeded with one row", runAddSheet},
	}
}

var errUsage = errors.New("invalid arguments")

// execute runs the command named by args[0] and writes its result to w.
func execute(ctx context.Context, db *sheetdb.DB, args []string, w io.Writer, format string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == args[0] })
	if i < 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}

	c := commands[i]
	result, err := c.run(ctx, db, args[1:])
	if err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("%w\nusage: sheetdb %s", err, c.usage)
		}
		return err
	}
	if result == nil {
		return nil
	}
	return emit(w, format, result)
}

// parseAssignments turns col=val arguments into a row. The value may be
// empty or contain '='; the column may not be empty.
func parseAssignments(args []string) (*sheetdb.Row, error) {
	row := sheetdb.NewRow()
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: expected col=val, got %q", errUsage, arg)
		}
		row.Set(col, sheetdb.Text(val))
	}
	return row, nil
}

// splitSet splits update arguments around the "set" keyword.
func splitSet(args []string) (query, patch []string, err error) {
	i := slices.Index(args, "set")
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: missing set", errUsage)
	}
	if i == len(args)-1 {
		return nil, nil, fmt.Errorf("%w: nothing to set", errUsage)
	}
	return args[:i], args[i+1:], nil
}

func runSelect(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	query, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	rows, _ := db.Select(query)
	if rows == nil {
		rows = []*sheetdb.Row{}
	}
	return rows, nil
}

func runGet(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: expected 3 arguments", errUsage)
	}
	v, ok := db.ColumnValue(args[0], sheetdb.Text(args[1]), args[2])
	if !ok {
		return nil, fmt.Errorf("no row with %s=%q holding %s", args[0], args[1], args[2])
	}
	return v, nil
}

func runInsert(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: nothing to insert", errUsage)
	}
	row, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	return nil, db.Insert(row)
}

func runUpdate(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	q, p, err := splitSet(args)
	if err != nil {
		return nil, err
	}
	query, err := parseAssignments(q)
	if err != nil {
		return nil, err
	}
	patch, err := parseAssignments(p)
	if err != nil {
		return nil, err
	}
	n, err := db.Update(query, patch)
	if err != nil {
		return nil, err
	}
	return map[string]int{"updated": n}, nil
}

func runDelete(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: refusing to delete every row without a query", errUsage)
	}
	query, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	n, err := db.Delete(query)
	if err != nil {
		return nil, err
	}
	return map[string]int{"deleted": n}, nil
}

func runCount(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected a column", errUsage)
	}
	return db.ColumnDataCount(args[0]), nil
}

func runAddColumn(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("%w: expected a name and an optional default", errUsage)
	}
	var def sheetdb.Value
	if len(args) == 2 {
		def = sheetdb.Text(args[1])
	}
	return nil, db.AddColumn(args[0], def)
}

func runRemoveColumn(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected a column", errUsage)
	}
	return nil, db.RemoveColumn(args[0])
}

func runSheets(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("%w: unexpected arguments", errUsage)
	}
	return db.SheetNames()
}

func runExists(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected a sheet name", errUsage)
	}
	return db.SheetExists(args[0])
}

func runAddSheet(_ context.Context, db *sheetdb.DB, args []string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: expected a sheet name", errUsage)
	}
	var rows []*sheetdb.Row
	if len(args) > 1 {
		row, err := parseAssignments(args[1:])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return nil, db.AddSheet(args[0], rows)
}

func emit(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlValue(v)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// yamlValue converts rows into yaml nodes so columns keep their order.
func yamlValue(v any) any {
	switch val := v.(type) {
	case []*sheetdb.Row:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, row := range val {
			seq.Content = append(seq.Content, rowNode(row))
		}
		return seq
	case sheetdb.Value:
		return val.Raw()
	default:
		return v
	}
}

func rowNode(row *sheetdb.Row) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for col, v := range row.All() {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Raw(), Style: scalarStyle(v.Raw())},
		)
	}
	return m
}

// scalarStyle quotes values that yaml would otherwise read back as numbers,
// booleans or null.
func scalarStyle(s string) yaml.Style {
	if s == "" {
		return yaml.DoubleQuotedStyle
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return yaml.DoubleQuotedStyle
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return yaml.DoubleQuotedStyle
	}
	return 0
}
