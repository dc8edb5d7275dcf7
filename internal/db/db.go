package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/lnfee/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// DefaultFileName is the database file created under the home directory.
const DefaultFileName = "lnfee.db"

// Init initializes the SQLite database at baseDir/lnfee.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lnfee.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	return Open(filepath.Join(baseDir, DefaultFileName))
}

// Open opens (or creates) the SQLite database at path and migrates it.
// An existing channel database keeps its channel_lists and channel_datas rows.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pragmas in connection string (applies to all connections)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: channel list and snapshot tables
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS channel_lists (
		  id            INTEGER PRIMARY KEY AUTOINCREMENT,
		  channel_name  TEXT,
		  channel_id    TEXT NOT NULL,
		  channel_point TEXT,
		  capacity      INTEGER
		);

		CREATE TABLE IF NOT EXISTS channel_datas (
		  channel_id     TEXT NOT NULL,
		  date           TEXT NOT NULL,
		  local_balance  INTEGER,
		  local_fee      INTEGER,
		  local_infee    INTEGER,
		  remote_balance INTEGER,
		  remote_fee     INTEGER,
		  remote_infee   INTEGER,
		  num_updates    INTEGER,
		  amboss_fee     INTEGER,
		  active         INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_channel_lists_channel_id
		ON channel_lists(channel_id);

		CREATE INDEX IF NOT EXISTS idx_channel_datas_channel_date
		ON channel_datas(channel_id, date DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: decision audit trail
	if version < 2 {
		schema := `
		CREATE TABLE IF NOT EXISTS fee_decisions (
		  id                  TEXT PRIMARY KEY,
		  run_id              TEXT NOT NULL,
		  channel_id          TEXT NOT NULL,
		  channel_name        TEXT,
		  mode                TEXT NOT NULL,
		  class               TEXT NOT NULL,
		  reason              TEXT NOT NULL,
		  ratio               REAL NOT NULL,
		  current_local_fee   INTEGER NOT NULL,
		  current_inbound_fee INTEGER NOT NULL,
		  new_local_fee       INTEGER,
		  new_inbound_fee     INTEGER,
		  local_balance       INTEGER,
		  pushed              INTEGER NOT NULL DEFAULT 0,
		  dry_run             INTEGER NOT NULL DEFAULT 0,
		  error               TEXT,
		  created_at          INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fee_decisions_run
		ON fee_decisions(run_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_fee_decisions_channel
		ON fee_decisions(channel_id, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
