package db

import (
	"database/sql"

	_ "github.com/marcboeker/go-duckdb"
)

func openDuckDB(dbPath string) (*sql.DB, error) {
	return sql.Open("duckdb", dbPath)
}
