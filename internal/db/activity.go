package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// Pipelines that record activity.
const (
	PipelinePull = "pull"
	PipelinePush = "push"
)

// RecordActivity logs a pipeline event on an issue.
func RecordActivity(ex execer, issueID int, pipeline, event, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := ex.Exec(
		`INSERT INTO activity_log (issue_id, pipeline, event, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		issueID, pipeline, event, nullString(detail), now,
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// GetActivity retrieves activity log entries for an issue, most recent first.
func GetActivity(db *sql.DB, issueID int, limit int) ([]model.Activity, error) {
	query := `SELECT id, issue_id, pipeline, event, detail, created_at
	          FROM activity_log
	          WHERE issue_id = ?
	          ORDER BY id DESC`
	args := []any{issueID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		var detail sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.IssueID, &a.Pipeline, &a.Event, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		a.Detail = detail.String

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing activity created_at: %w", err)
		}
		a.CreatedAt = t

		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}

	return activities, nil
}
