package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are stored, always in UTC
const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	conn *sql.DB
}

// Open opens linkgrab.db in dataDir and initializes the schema
func Open(dataDir string) (*DB, error) {
	return OpenPath(filepath.Join(dataDir, "linkgrab.db"))
}

// OpenPath opens the database file at dbPath
func OpenPath(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// the scheduler and the web API write and read concurrently
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		url TEXT NOT NULL,
		handler TEXT NOT NULL,
		destination TEXT NOT NULL DEFAULT '',

		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,

		success BOOLEAN NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_started_at ON downloads(started_at);
	CREATE INDEX IF NOT EXISTS idx_downloads_batch ON downloads(batch_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_handler ON downloads(handler);
	`

	_, err := db.conn.Exec(schema)
	return err
}
