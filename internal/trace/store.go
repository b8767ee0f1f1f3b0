package trace

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stored in PRAGMA user_version. Bump it when schema.sql
// changes shape.
const journalVersion = 1

// MemoryPath opens a journal that lives only as long as its Store.
const MemoryPath = ":memory:"

// Store is the SQLite-backed trace journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path. Use MemoryPath for a throwaway
// journal, as the scenario harness does.
//
// File journals run in WAL mode so `sagaflow trace` can read while a run is
// still writing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace journal %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database disappears with the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace journal %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the path the journal was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func setup(db *sql.DB, path string) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version > journalVersion {
		return fmt.Errorf("journal version %d was written by a newer sagaflow (supports %d)", version, journalVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	if version < journalVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
			return fmt.Errorf("write journal version: %w", err)
		}
	}
	return nil
}
