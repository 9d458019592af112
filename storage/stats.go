package storage

import (
	"fmt"
	"time"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date         string `json:"date"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"success"`
	FailureCount int    `json:"failure"`
}

// HandlerStats represents statistics grouped by handler
type HandlerStats struct {
	Handler       string  `json:"handler"`
	Total         int     `json:"total"`
	SuccessCount  int     `json:"success"`
	FailureCount  int     `json:"failure"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	Total           int     `json:"total"`
	Batches         int     `json:"batches"`
	SuccessCount    int     `json:"success"`
	FailureCount    int     `json:"failure"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
	TotalDurationMs int64   `json:"total_duration_ms"`
}

func since(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(started_at) as date,
			COUNT(*) as total,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as failure_count
		FROM downloads
		WHERE started_at >= ?
		GROUP BY DATE(started_at)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Date, &s.Total, &s.SuccessCount, &s.FailureCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetHandlerStats retrieves statistics grouped by handler for the last N days
func (db *DB) GetHandlerStats(days int) ([]HandlerStats, error) {
	query := `
		SELECT
			handler,
			COUNT(*) as total,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as failure_count,
			AVG(duration_ms) as avg_duration_ms
		FROM downloads
		WHERE started_at >= ?
		GROUP BY handler
		ORDER BY total DESC, handler ASC
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query handler stats: %w", err)
	}
	defer rows.Close()

	var stats []HandlerStats
	for rows.Next() {
		var s HandlerStats
		err := rows.Scan(&s.Handler, &s.Total, &s.SuccessCount, &s.FailureCount, &s.AvgDurationMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan handler stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(DISTINCT batch_id) as batches,
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0) as success_count,
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as failure_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COALESCE(SUM(duration_ms), 0) as total_duration_ms
		FROM downloads
		WHERE started_at >= ?
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, since(days)).Scan(
		&stats.Total,
		&stats.Batches,
		&stats.SuccessCount,
		&stats.FailureCount,
		&stats.AvgDurationMs,
		&stats.TotalDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
