package googlesheets

import (
	"time"

	"github.com/ideamans/go-sheetdb"
)

// Config holds configuration for the Google Sheets codec
type Config struct {
	// ValueInputOption controls how written strings are interpreted
	// (default: RAW, stored exactly as given).
	ValueInputOption string
	// ValueRenderOption controls how cells are read back
	// (default: FORMATTED_VALUE, the text a user sees in the sheet).
	ValueRenderOption string
}

const (
	defaultValueInputOption  = "RAW"
	defaultValueRenderOption = "FORMATTED_VALUE"
)

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.ValueInputOption == "" {
		out.ValueInputOption = defaultValueInputOption
	}
	if out.ValueRenderOption == "" {
		out.ValueRenderOption = defaultValueRenderOption
	}
	return out
}

// DefaultDatabaseConfig returns the recommended database configuration for a
// spreadsheet. The Sheets API rate limits aggressively, so failed requests
// are retried with a long interval.
func DefaultDatabaseConfig(spreadsheetID, sheetName string) *sheetdb.Config {
	return &sheetdb.Config{
		FilePath:      spreadsheetID,
		SheetName:     sheetName,
		MaxRetries:    3,
		RetryInterval: 20 * time.Second,
	}
}
