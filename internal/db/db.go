// Package db persists build state between runs: document hashes for
// incremental builds, the object inventory and page sections for search,
// and the diagnostics of the last build. The same schema runs on SQLite and
// DuckDB.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Drivers accepted by Open.
const (
	SQLite = "sqlite"
	DuckDB = "duckdb"
)

type DB struct {
	conn   *sql.DB
	driver string
}

// Open opens or creates the store at dbPath with the named driver.
func Open(dbPath, driver string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case SQLite, "":
		driver = SQLite
		conn, err = openSQLite(dbPath)
	case DuckDB:
		conn, err = openDuckDB(dbPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver is the name of the driver the store was opened with.
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			source_dir TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			documents INTEGER NOT NULL DEFAULT 0,
			written INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0,
			unresolved INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			source_hash TEXT NOT NULL,
			output_hash TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			build_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS objects (
			name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			type TEXT NOT NULL,
			doc_name TEXT NOT NULL,
			anchor TEXT NOT NULL,
			priority INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_name ON objects (name)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_doc ON objects (doc_name)`,

		`CREATE TABLE IF NOT EXISTS sections (
			doc_name TEXT NOT NULL,
			idx INTEGER NOT NULL,
			heading TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (doc_name, idx)
		)`,

		`CREATE TABLE IF NOT EXISTS diagnostics (
			doc_name TEXT NOT NULL,
			line INTEGER NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_doc ON diagnostics (doc_name)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// likePattern matches q anywhere in a lowercased column.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// --- Build operations ---

type Build struct {
	ID         string
	SourceDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Documents  int
	Written    int
	Warnings   int
	Unresolved int
}

func (db *DB) BeginBuild(ctx context.Context, id, sourceDir string, startedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO builds (id, source_dir, started_at) VALUES (?, ?, ?)`,
		id, sourceDir, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording build start: %w", err)
	}
	return nil
}

func (db *DB) FinishBuild(ctx context.Context, b Build) error {
	finished := time.Now().UTC()
	if b.FinishedAt != nil {
		finished = b.FinishedAt.UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE builds SET finished_at = ?, documents = ?, written = ?, warnings = ?, unresolved = ? WHERE id = ?`,
		finished, b.Documents, b.Written, b.Warnings, b.Unresolved, b.ID,
	)
	if err != nil {
		return fmt.Errorf("recording build end: %w", err)
	}
	return nil
}

// LastBuild returns the most recently started build, or nil.
func (db *DB) LastBuild(ctx context.Context) (*Build, error) {
	var b Build
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, source_dir, started_at, finished_at, documents, written, warnings, unresolved
		 FROM builds ORDER BY started_at DESC LIMIT 1`,
	).Scan(&b.ID, &b.SourceDir, &b.StartedAt, &b.FinishedAt, &b.Documents, &b.Written, &b.Warnings, &b.Unresolved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last build: %w", err)
	}
	return &b, nil
}

// --- Document operations ---

type Document struct {
	Name       string
	SourceHash string
	OutputHash string
	Title      string
	BuildID    string
	UpdatedAt  time.Time
}

func (db *DB) UpsertDocument(ctx context.Context, d Document) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO documents (name, source_hash, output_hash, title, build_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			source_hash = excluded.source_hash,
			output_hash = excluded.output_hash,
			title = excluded.title,
			build_id = excluded.build_id,
			updated_at = excluded.updated_at`,
		d.Name, d.SourceHash, d.OutputHash, d.Title, d.BuildID, d.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", d.Name, err)
	}
	return nil
}

// GetDocument returns the stored document, or nil if there is none.
func (db *DB) GetDocument(ctx context.Context, name string) (*Document, error) {
	var d Document
	err := db.conn.QueryRowContext(ctx,
		`SELECT name, source_hash, output_hash, title, build_id, updated_at FROM documents WHERE name = ?`,
		name,
	).Scan(&d.Name, &d.SourceHash, &d.OutputHash, &d.Title, &d.BuildID, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", name, err)
	}
	return &d, nil
}

func (db *DB) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, source_hash, output_hash, title, build_id, updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Name, &d.SourceHash, &d.OutputHash, &d.Title, &d.BuildID, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument forgets a document along with its sections and diagnostics.
func (db *DB) DeleteDocument(ctx context.Context, name string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM documents WHERE name = ?`,
			`DELETE FROM sections WHERE doc_name = ?`,
			`DELETE FROM diagnostics WHERE doc_name = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, name); err != nil {
				return fmt.Errorf("deleting document %s: %w", name, err)
			}
		}
		return nil
	})
}

// --- Object inventory ---

type Object struct {
	Name        string
	DisplayName string
	Type        string
	DocName     string
	Anchor      string
	Priority    int
}

// ReplaceObjects swaps the whole object inventory for objs.
func (db *DB) ReplaceObjects(ctx context.Context, objs []Object) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM objects`); err != nil {
			return fmt.Errorf("clearing objects: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO objects (name, display_name, type, doc_name, anchor, priority) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing object insert: %w", err)
		}
		defer stmt.Close()
		for _, o := range objs {
			if _, err := stmt.ExecContext(ctx, o.Name, o.DisplayName, o.Type, o.DocName, o.Anchor, o.Priority); err != nil {
				return fmt.Errorf("inserting object %s: %w", o.Name, err)
			}
		}
		return nil
	})
}

// SearchObjects finds objects whose name contains query, ignoring case.
// Shorter names and higher priorities come first.
func (db *DB) SearchObjects(ctx context.Context, query string, limit int) ([]Object, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, display_name, type, doc_name, anchor, priority FROM objects
		 WHERE lower(name) LIKE ? ESCAPE '\'
		 ORDER BY priority, length(name), name
		 LIMIT ?`,
		likePattern(query), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching objects: %w", err)
	}
	defer rows.Close()

	var objs []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.Name, &o.DisplayName, &o.Type, &o.DocName, &o.Anchor, &o.Priority); err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, rows.Err()
}

// --- Sections ---

type Section struct {
	DocName string
	Index   int
	Heading string
	Body    string
}

// ReplaceSections stores the sections of one rendered page.
func (db *DB) ReplaceSections(ctx context.Context, docName string, sections []Section) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE doc_name = ?`, docName); err != nil {
			return fmt.Errorf("clearing sections of %s: %w", docName, err)
		}
		for _, s := range sections {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sections (doc_name, idx, heading, body) VALUES (?, ?, ?, ?)`,
				docName, s.Index, s.Heading, s.Body,
			); err != nil {
				return fmt.Errorf("inserting section %s#%d: %w", docName, s.Index, err)
			}
		}
		return nil
	})
}

// SearchSections finds page sections whose heading or body contains query.
func (db *DB) SearchSections(ctx context.Context, query string, limit int) ([]Section, error) {
	pattern := likePattern(query)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc_name, idx, heading, body FROM sections
		 WHERE lower(heading) LIKE ? ESCAPE '\' OR lower(body) LIKE ? ESCAPE '\'
		 ORDER BY doc_name, idx
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching sections: %w", err)
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.DocName, &s.Index, &s.Heading, &s.Body); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- Diagnostics ---

type Diagnostic struct {
	DocName  string
	Line     int
	Severity string
	Message  string
}

func (db *DB) ReplaceDiagnostics(ctx context.Context, docName string, diags []Diagnostic) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM diagnostics WHERE doc_name = ?`, docName); err != nil {
			return fmt.Errorf("clearing diagnostics of %s: %w", docName, err)
		}
		for _, d := range diags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO diagnostics (doc_name, line, severity, message) VALUES (?, ?, ?, ?)`,
				docName, d.Line, d.Severity, d.Message,
			); err != nil {
				return fmt.Errorf("inserting diagnostic: %w", err)
			}
		}
		return nil
	})
}

func (db *DB) ListDiagnostics(ctx context.Context) ([]Diagnostic, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc_name, line, severity, message FROM diagnostics ORDER BY doc_name, line`)
	if err != nil {
		return nil, fmt.Errorf("listing diagnostics: %w", err)
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.DocName, &d.Line, &d.Severity, &d.Message); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Maintenance ---

type Stats struct {
	Documents int `json:"documents"`
	Objects   int `json:"objects"`
	Sections  int `json:"sections"`
	Builds    int `json:"builds"`
}

func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"documents", &s.Documents},
		{"objects", &s.Objects},
		{"sections", &s.Sections},
		{"builds", &s.Builds},
	} {
		if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return s, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return s, nil
}

// Clear removes all stored state.
func (db *DB) Clear(ctx context.Context) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"builds", "documents", "objects", "sections", "diagnostics"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}
