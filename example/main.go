package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Initialize the Google Sheets codec with a JSON key file
	codec, err := googlesheets.NewWithJSONKeyFile(ctx, nil, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create codec: %w", err)
	}

	// Recommended retry settings for the Sheets API
	config := googlesheets.DefaultDatabaseConfig("your-spreadsheet-id", "example")

	db, err := sheetdb.Open(ctx, codec, config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user := sheetdb.NewRow()
	user.SetString("name", "John Doe")
	user.SetString("email", "john@example.com")
	user.SetInt64("age", 30)
	if err := db.Insert(user); err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}

	results, err := db.Query(sheetdb.Query{
		Conditions: []sheetdb.Condition{
			{Column: "age", Operator: sheetdb.OpGreaterEqual, Value: sheetdb.Text("25")},
			{Column: "age", Operator: sheetdb.OpLessEqual, Value: sheetdb.Text("35")},
		},
		Limit: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	fmt.Printf("Found %d users aged 25-35:\n", len(results))
	for _, row := range results {
		fmt.Printf("  %s (age: %d)\n", row.GetAsString("name", "Unknown"), row.GetAsInt64("age", 0))
	}

	if len(results) > 0 {
		first := results[0]
		patch := sheetdb.NewRow()
		patch.SetInt64("login_count", first.GetAsInt64("login_count", 0)+1)
		if _, err := db.Update(sheetdb.TextRow("email", first.GetAsString("email", "")), patch); err != nil {
			log.Printf("Failed to update row: %v", err)
		}
	}

	return nil
}
