package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
)

// openSQLite opens a SQLite store with the driver selected at build time.
func openSQLite(dbPath string) (*sql.DB, error) {
	// A file left behind by the DuckDB driver is not a SQLite database.
	if info, err := os.Stat(dbPath); err == nil && info.Size() >= 4 {
		f, err := os.Open(dbPath)
		if err == nil {
			header := make([]byte, 4)
			n, _ := f.Read(header)
			f.Close()
			if n >= 4 && string(header) != "SQLi" {
				slog.Warn("removing non-SQLite database file", "path", dbPath)
				os.Remove(dbPath)
			}
		}
	}

	conn, err := sql.Open(sqliteDriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Single writer; WAL lets readers proceed during a build.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return conn, nil
}
