//go:build cgo_sqlite

package db

// Built with -tags cgo_sqlite: the cgo SQLite driver.
import _ "github.com/mattn/go-sqlite3"

const sqliteDriverName = "sqlite3"
