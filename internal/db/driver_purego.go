//go:build !cgo_sqlite

package db

// The default build uses the pure Go SQLite driver.
import _ "modernc.org/sqlite"

const sqliteDriverName = "sqlite"
