// Package main is the sheetdb command line tool.
//
// sheetdb treats one sheet of an .xlsx workbook or a Google spreadsheet as a
// table: row 1 holds the column names, every later row is a record.
// Workbooks are read through the storage selected by SHEETDB_STORAGE_MODE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
	"github.com/ideamans/go-sheetdb/storage"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "sheetdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	file := flag.String("file", "", "Workbook path, or spreadsheet ID with -backend googlesheets")
	sheet := flag.String("sheet", sheetdb.DefaultSheetName, "Sheet backing the table")
	backend := flag.String("backend", "excel", "Document backend (excel, googlesheets)")
	credentials := flag.String("credentials", "", "Service account JSON key file for googlesheets (default: application default credentials)")
	create := flag.Bool("create", false, "Create the workbook if it does not exist")
	columns := flag.String("columns", "", "Comma separated header for a created workbook")
	format := flag.String("format", "json", "Output format (json, yaml)")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	if *format != "json" && *format != "yaml" {
		return fmt.Errorf("unknown format %q", *format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger := initLogger(*logLevel)
	slog.SetDefault(logger)

	codec, err := newCodec(ctx, *backend, *credentials)
	if err != nil {
		return err
	}

	cfg := &sheetdb.Config{
		FilePath:        *file,
		SheetName:       *sheet,
		CreateIfMissing: *create,
		Logger:          logger,
	}
	if *columns != "" {
		cfg.Columns = strings.Split(*columns, ",")
	}
	if *backend == "googlesheets" {
		gs := googlesheets.DefaultDatabaseConfig(*file, *sheet)
		cfg.MaxRetries = gs.MaxRetries
		cfg.RetryInterval = gs.RetryInterval
	}

	db, err := sheetdb.Open(ctx, codec, cfg)
	if err != nil {
		return err
	}

	err = execute(ctx, db, flag.Args(), os.Stdout, *format)
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	return err
}

func newCodec(ctx context.Context, backend, credentials string) (sheetdb.Codec, error) {
	switch backend {
	case "excel":
		store, err := storage.FromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return excel.New(&excel.Config{Storage: store}), nil
	case "googlesheets":
		if credentials == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			return googlesheets.NewWithDefaultCredentials(ctx, nil)
		}
		return googlesheets.NewWithJSONKeyFile(ctx, nil, credentials)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// initLogger writes colored logs to stderr when it is a terminal.
func initLogger(level string) *slog.Logger {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "error":
		ll.Set(slog.LevelError)
	default:
		ll.Set(slog.LevelWarn)
	}

	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: sheetdb [flags] <command> [args]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-40s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(out, "\nflags:\n")
	flag.PrintDefaults()
}
