package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
)

func main() {
	ctx := context.Background()

	// Excel codec reading and writing the local filesystem
	codec := excel.New(nil)

	// Open the users sheet, creating the workbook on first run
	db, err := sheetdb.Open(ctx, codec, &sheetdb.Config{
		FilePath:        "./example_data.xlsx",
		SheetName:       "users",
		CreateIfMissing: true,
		Columns:         []string{"id", "name", "email", "age", "department", "active"},
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// 1. Add some rows. Every insert is written to the file immediately.
	fmt.Println("Adding rows...")
	users := []*sheetdb.Row{
		sheetdb.TextRow("id", "1", "name", "Alice Johnson", "email", "alice@example.com", "age", "30", "department", "Engineering", "active", "true"),
		sheetdb.TextRow("id", "2", "name", "Bob Smith", "email", "bob@example.com", "age", "25", "department", "Marketing", "active", "true"),
		sheetdb.TextRow("id", "3", "name", "Charlie Brown", "email", "charlie@example.com", "age", "35", "department", "Engineering", "active", "false"),
	}
	for _, user := range users {
		if err := db.Insert(user); err != nil {
			log.Printf("Failed to insert user: %v", err)
		} else {
			fmt.Printf("Added user: %s\n", user.GetAsString("name", ""))
		}
	}

	// 2. Select by exact column values
	fmt.Println("\nSelecting active engineers...")
	rows, ok := db.Select(sheetdb.TextRow("department", "Engineering", "active", "true"))
	if !ok {
		fmt.Println("No match")
	}
	for _, r := range rows {
		fmt.Printf("- %s (age: %d)\n", r.GetAsString("name", ""), r.GetAsInt64("age", 0))
	}

	// 3. Update matching rows; new columns widen the header
	fmt.Println("\nUpdating Bob's department...")
	n, err := db.Update(sheetdb.TextRow("name", "Bob Smith"), sheetdb.TextRow(
		"department", "Sales",
		"updated_at", time.Now().Format(time.RFC3339),
	))
	if err != nil {
		log.Printf("Update failed: %v", err)
	} else {
		fmt.Printf("Updated %d row(s)\n", n)
	}

	// 4. Typed setters store text cells
	fmt.Println("\nUsing typed setters...")
	row := sheetdb.NewRow()
	row.SetInt64("id", 4)
	row.SetString("name", "Diana Prince")
	row.SetString("email", "diana@example.com")
	row.SetInt64("age", 28)
	row.SetBool("active", true)
	row.SetStrings("skills", []string{"Java", "Python", "Go"})
	row.SetTime("created_at", time.Now())
	if err := db.Insert(row); err != nil {
		log.Printf("Failed to insert row: %v", err)
	}

	// 5. Operator queries compare numbers when both sides parse
	fmt.Println("\nFinding users between 25-35 years old...")
	results, err := db.Query(sheetdb.Query{
		Conditions: []sheetdb.Condition{
			{Column: "age", Operator: sheetdb.OpBetween, Values: []sheetdb.Value{sheetdb.Text("25"), sheetdb.Text("35")}},
		},
		Limit: 10,
	})
	if err != nil {
		log.Printf("Query failed: %v", err)
	}
	for _, r := range results {
		fmt.Printf("- %s (age: %d, skills: %v)\n",
			r.GetAsString("name", ""),
			r.GetAsInt64("age", 0),
			r.GetAsStrings("skills", []string{}))
	}

	// 6. Column and sheet management
	if err := db.AddColumn("team", sheetdb.Text("unassigned")); err != nil {
		log.Printf("AddColumn failed: %v", err)
	}
	if v, ok := db.ColumnValue("name", sheetdb.Text("Alice Johnson"), "team"); ok {
		fmt.Printf("\nAlice's team: %s\n", v)
	}
	fmt.Printf("Rows with an email: %d\n", db.ColumnDataCount("email"))

	exists, err := db.SheetExists("archive")
	if err == nil && !exists {
		if err := db.AddSheet("archive", nil); err != nil {
			log.Printf("AddSheet failed: %v", err)
		}
	}
	names, _ := db.SheetNames()
	fmt.Printf("Sheets: %v\n", names)

	fmt.Println("\nExample completed. Check ./example_data.xlsx for the data.")
}
