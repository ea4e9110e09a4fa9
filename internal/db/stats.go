package db

import (
	"database/sql"
	"fmt"
)

// Counts summarizes the snapshot for the status command.
type Counts struct {
	Issues            int            `json:"issues"`
	IssuesPushed      int            `json:"issues_pushed"`
	Comments          int            `json:"comments"`
	CommentsPushed    int            `json:"comments_pushed"`
	Attachments       int            `json:"attachments"`
	AttachmentsPushed int            `json:"attachments_pushed"`
	AttachmentBytes   int64          `json:"attachment_bytes"`
	Users             int            `json:"users"`
	UsersResolved     int            `json:"users_resolved"`
	ByStatus          map[string]int `json:"by_status"`
}

// GetCounts tallies the snapshot's issues, comments, attachments and users.
func GetCounts(db *sql.DB) (*Counts, error) {
	c := &Counts{ByStatus: make(map[string]int)}

	err := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM issues),
			(SELECT COUNT(*) FROM issues WHERE target_key IS NOT NULL),
			(SELECT COUNT(*) FROM comments),
			(SELECT COUNT(*) FROM comments WHERE target_id IS NOT NULL),
			(SELECT COUNT(*) FROM attachments),
			(SELECT COUNT(*) FROM attachments WHERE target_id IS NOT NULL),
			(SELECT COALESCE(SUM(size), 0) FROM attachments),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE target_account_id IS NOT NULL)`,
	).Scan(
		&c.Issues, &c.IssuesPushed,
		&c.Comments, &c.CommentsPushed,
		&c.Attachments, &c.AttachmentsPushed, &c.AttachmentBytes,
		&c.Users, &c.UsersResolved,
	)
	if err != nil {
		return nil, fmt.Errorf("counting snapshot rows: %w", err)
	}

	rows, err := db.Query(`SELECT status, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		c.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return c, nil
}

// ClearAllData deletes every snapshot row in one transaction. The schema and
// meta table are kept.
func ClearAllData(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"activity_log", "attachments", "comments", "issues", "users"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM sqlite_sequence`); err != nil {
		return fmt.Errorf("resetting sequences: %w", err)
	}

	return tx.Commit()
}
