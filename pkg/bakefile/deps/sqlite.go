package deps

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Kinds of tracked files in the records table.
const (
	kindDep    = "dep"
	kindOutput = "output"
)

// SQLiteStore persists dependency records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite dependency store.
// The path should be a file path (e.g., "./deps.db") or ":memory:" for
// testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			bakefile TEXT NOT NULL,
			format TEXT NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (bakefile, format, kind, path)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_pair
		ON records(bakefile, format)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// add inserts one tracked file, keeping insertion order via position.
func (s *SQLiteStore) add(bakefile, format, kind, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO records (bakefile, format, kind, path, position)
		VALUES (
			?, ?, ?, ?,
			COALESCE((SELECT MAX(position) FROM records
			          WHERE bakefile = ? AND format = ?), 0) + 1
		)
		ON CONFLICT(bakefile, format, kind, path) DO NOTHING
	`, bakefile, format, kind, path, bakefile, format)

	if err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}
	return nil
}

// AddDependency implements Store.
func (s *SQLiteStore) AddDependency(bakefile, format, dependency string) error {
	if bakefile == dependency {
		return nil
	}
	return s.add(bakefile, format, kindDep, dependency)
}

// AddOutput implements Store.
func (s *SQLiteStore) AddOutput(bakefile, format, output string) error {
	return s.add(bakefile, format, kindOutput, output)
}

// Get implements Store.
func (s *SQLiteStore) Get(bakefile, format string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT kind, path FROM records
		WHERE bakefile = ? AND format = ?
		ORDER BY position
	`, bakefile, format)
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}
	defer rows.Close()

	var rec Record
	found := false
	for rows.Next() {
		var kind, path string
		if err := rows.Scan(&kind, &path); err != nil {
			return Record{}, fmt.Errorf("scan record: %w", err)
		}
		found = true
		switch kind {
		case kindDep:
			rec.Deps = append(rec.Deps, path)
		case kindOutput:
			rec.Outputs = append(rec.Outputs, path)
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate record: %w", err)
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT DISTINCT bakefile, format FROM records
		ORDER BY bakefile, format
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Bakefile, &e.Format); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
