package sheetdb

import (
	"log/slog"
	"time"
)

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Sheet1"

// Config represents configuration for a DB handle
type Config struct {
	FilePath  string // Path (or codec specific location) of the document
	SheetName string // Sheet backing the table (default: Sheet1)

	// CreateIfMissing creates the document when FilePath does not exist yet.
	// The codec must implement Creator. Columns, if set, becomes the header
	// row of the new sheet.
	CreateIfMissing bool
	Columns         []string

	MaxRetries    int           // Retries for storage failures (default: 0, fail immediately)
	RetryInterval time.Duration // Base interval for exponential backoff (default: 100ms)

	Logger *slog.Logger // Defaults to slog.Default()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	return nil
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Columns = append([]string(nil), c.Columns...)
	return cfg
}
