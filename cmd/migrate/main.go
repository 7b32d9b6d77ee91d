package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"menu-qa/internal/shared"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dsn, err := shared.SafeEnv("DSN")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: DSN environment variable is required: %v\n", err)
		os.Exit(1)
	}

	migrationPath := filepath.Join("migrations", "create_question_log_table.sql")
	if len(os.Args) > 1 {
		migrationPath = os.Args[1]
	}

	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading migration file %s: %v\n", migrationPath, err)
		os.Exit(1)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	for _, stmt := range splitStatements(string(migrationSQL)) {
		if _, err := db.Exec(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "Error executing statement: %v\n", err)
			fmt.Fprintf(os.Stderr, "Statement: %s\n", stmt)
			os.Exit(1)
		}
	}

	fmt.Println("Migration completed successfully!")
}

// splitStatements splits a script on semicolons and drops comment lines.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		var clean []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			clean = append(clean, line)
		}
		if len(clean) > 0 {
			out = append(out, strings.Join(clean, "\n"))
		}
	}
	return out
}
