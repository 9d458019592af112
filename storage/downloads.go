package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record id does not exist
var ErrNotFound = errors.New("download not found")

// Download is the outcome of one queued link
type Download struct {
	ID           int64     `json:"id"`
	BatchID      string    `json:"batch_id"`
	URL          string    `json:"url"`
	Handler      string    `json:"handler"`
	Destination  string    `json:"destination"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error,omitempty"`
}

// SaveDownload saves a download record and sets its ID
func (db *DB) SaveDownload(d *Download) error {
	query := `
		INSERT INTO downloads (
			batch_id, url, handler, destination, started_at, duration_ms, success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage sql.NullString
	if d.ErrorMessage != "" {
		errorMessage = sql.NullString{String: d.ErrorMessage, Valid: true}
	}

	result, err := db.conn.Exec(query,
		d.BatchID, d.URL, d.Handler, d.Destination,
		d.StartedAt.UTC().Format(timeLayout), d.DurationMs,
		d.Success, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	d.ID = id
	return nil
}

// GetDownloads retrieves downloads, newest first, with pagination
func (db *DB) GetDownloads(limit, offset int) ([]Download, error) {
	query := `
		SELECT id, batch_id, url, handler, destination, started_at, duration_ms, success, error_message
		FROM downloads
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return db.queryDownloads(query, limit, offset)
}

// GetBatch retrieves the downloads of one batch in processing order
func (db *DB) GetBatch(batchID string) ([]Download, error) {
	query := `
		SELECT id, batch_id, url, handler, destination, started_at, duration_ms, success, error_message
		FROM downloads
		WHERE batch_id = ?
		ORDER BY id ASC
	`
	return db.queryDownloads(query, batchID)
}

func (db *DB) queryDownloads(query string, args ...any) ([]Download, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var d Download
		var startedAt string
		var errorMessage sql.NullString

		err := rows.Scan(
			&d.ID, &d.BatchID, &d.URL, &d.Handler, &d.Destination,
			&startedAt, &d.DurationMs, &d.Success, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}

		d.StartedAt, err = time.ParseInLocation(timeLayout, startedAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at %q: %w", startedAt, err)
		}
		if errorMessage.Valid {
			d.ErrorMessage = errorMessage.String
		}

		downloads = append(downloads, d)
	}

	return downloads, rows.Err()
}

// DeleteDownload deletes a download record by ID
func (db *DB) DeleteDownload(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetDownloadCount returns the total number of download records
func (db *DB) GetDownloadCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM downloads").Scan(&count)
	return count, err
}
