package db

import (
	"database/sql"
	"fmt"
)

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	RunID     string
	Event     string
	Stage     string
	Attempt   int
	Detail    string
	Timestamp string
}

// LogRunEvent inserts a run event.
func (d *DB) LogRunEvent(runID, event, stage string, attempt int, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, event, stage, attempt, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, event, stage, attempt, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// RecentRunEvents returns the most recent run events, newest first.
func (d *DB) RecentRunEvents(limit int) ([]RunEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, stage, attempt, detail, timestamp
		 FROM run_events ORDER BY timestamp DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	return scanRunEvents(rows)
}

// RunEvents returns all events for one run, oldest first.
func (d *DB) RunEvents(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, stage, attempt, detail, timestamp
		 FROM run_events WHERE run_id = ? ORDER BY timestamp ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	return scanRunEvents(rows)
}

func scanRunEvents(rows *sql.Rows) ([]RunEvent, error) {
	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var stage, detail sql.NullString
		var attempt sql.NullInt64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &stage, &attempt, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Stage = stage.String
		e.Attempt = int(attempt.Int64)
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}
