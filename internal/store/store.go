package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the SQLite backend. It holds the persisted session, the local
// journal of check events, daily totals and UI settings.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS session (
		id                  INTEGER PRIMARY KEY CHECK (id = 1),
		csid                TEXT NOT NULL,
		esid                TEXT NOT NULL,
		cookies             TEXT NOT NULL,
		user_id             TEXT NOT NULL DEFAULT '',
		first_name          TEXT NOT NULL DEFAULT '',
		company_id          TEXT NOT NULL DEFAULT '',
		work_status         TEXT NOT NULL DEFAULT 'offline',
		current_project     TEXT,
		accumulated_seconds INTEGER NOT NULL DEFAULT 0,
		daily_schedule      INTEGER NOT NULL DEFAULT 0,
		last_check_in       TEXT,
		timestamp           TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS journal (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		project_id    TEXT NOT NULL DEFAULT '',
		project_name  TEXT NOT NULL DEFAULT '',
		at            TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_at ON journal(at);

	CREATE TABLE IF NOT EXISTS daily_totals (
		date                TEXT PRIMARY KEY,
		accumulated_seconds INTEGER NOT NULL DEFAULT 0,
		daily_schedule      INTEGER NOT NULL DEFAULT 0,
		updated_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('last_email',   ''),
		('last_project', '');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns $XDG_DATA_HOME/sesame-cli/sesame.db
func DefaultDBPath() (string, error) {
	return xdg.DataFile(filepath.Join("sesame-cli", "sesame.db"))
}
