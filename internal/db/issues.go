package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// Activity events recorded by the store.
const (
	EventCreated   = "created"
	EventRefreshed = "refreshed"
)

// ListOptions holds filtering and pagination options for ListIssues.
type ListOptions struct {
	Statuses []string // filter by status (multiple = OR)
	Types    []string // filter by type (multiple = OR)
	Limit    int      // max results
	Offset   int      // for pagination
}

// UpsertIssue writes a pulled issue to the snapshot keyed by issue.Key.
// Assignee, reporter and comment authors are upserted by account id and
// comments by source id, all in one transaction. Comments without a source id
// are skipped. The target key of an existing row is preserved. issue.ID is set
// and returned.
func UpsertIssue(db *sql.DB, issue *model.Issue) (int, error) {
	if issue.Key == "" {
		return 0, fmt.Errorf("upserting issue: key is required")
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	assigneeID, err := upsertUserRef(tx, issue.Assignee)
	if err != nil {
		return 0, err
	}
	reporterID, err := upsertUserRef(tx, issue.Reporter)
	if err != nil {
		return 0, err
	}

	description, err := encodeDocument(issue.Description)
	if err != nil {
		return 0, fmt.Errorf("encoding %s description: %w", issue.Key, err)
	}

	var existing int
	err = tx.QueryRow(`SELECT id FROM issues WHERE key = ?`, issue.Key).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("looking up issue %s: %w", issue.Key, err)
	}
	event := EventRefreshed
	if existing == 0 {
		event = EventCreated
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var id int
	err = tx.QueryRow(
		`INSERT INTO issues
			(key, summary, created_at, parent_key, assignee_id, reporter_id,
			 status, type, priority, description, pulled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			summary = excluded.summary,
			created_at = excluded.created_at,
			parent_key = excluded.parent_key,
			assignee_id = excluded.assignee_id,
			reporter_id = excluded.reporter_id,
			status = excluded.status,
			type = excluded.type,
			priority = excluded.priority,
			description = excluded.description,
			pulled_at = excluded.pulled_at
		 RETURNING id`,
		issue.Key,
		issue.Summary,
		issue.CreatedAt.UTC().Format(time.RFC3339),
		nullString(issue.ParentKey),
		assigneeID,
		reporterID,
		string(issue.Status),
		string(issue.Type),
		string(issue.Priority),
		description,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting issue %s: %w", issue.Key, err)
	}

	for _, c := range issue.Comments {
		if c == nil || c.SourceID == "" {
			continue
		}
		if _, err := UpsertComment(tx, id, c); err != nil {
			return 0, err
		}
	}

	if err := RecordActivity(tx, id, PipelinePull, event, ""); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	issue.ID = id
	return id, nil
}

func upsertUserRef(q queryer, u *model.User) (any, error) {
	if u == nil || u.AccountID == "" {
		return nil, nil
	}
	return UpsertUser(q, u)
}

// GetIssueByKey retrieves a snapshot issue with users, comments and
// attachments hydrated.
func GetIssueByKey(db *sql.DB, key string) (*model.Issue, error) {
	row := db.QueryRow(
		`SELECT `+issueColumns+` FROM issues WHERE key = ?`, key,
	)
	ref, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning issue: %w", err)
	}

	if err := hydrate(db, []issueRow{ref}); err != nil {
		return nil, err
	}
	return ref.issue, nil
}

// ListIssues returns a page of snapshot issues in insertion order along with
// the total number of matching issues, each hydrated with users, comments and
// attachments.
func ListIssues(db *sql.DB, opts ListOptions) ([]*model.Issue, int, error) {
	var where string
	var args []any

	if len(opts.Statuses) > 0 {
		where += fmt.Sprintf(" AND status IN (%s)", makePlaceholders(len(opts.Statuses)))
		for _, s := range opts.Statuses {
			args = append(args, s)
		}
	}
	if len(opts.Types) > 0 {
		where += fmt.Sprintf(" AND type IN (%s)", makePlaceholders(len(opts.Types)))
		for _, t := range opts.Types {
			args = append(args, t)
		}
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM issues WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting issues: %w", err)
	}

	query := `SELECT ` + issueColumns + ` FROM issues WHERE 1=1` + where + ` ORDER BY id ASC`
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying issues: %w", err)
	}

	var refs []issueRow
	for rows.Next() {
		ref, err := scanIssue(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning issue row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterating issue rows: %w", err)
	}
	// The pool holds a single connection, so release it before hydrating.
	rows.Close()

	if err := hydrate(db, refs); err != nil {
		return nil, 0, err
	}

	issues := make([]*model.Issue, len(refs))
	for i, ref := range refs {
		issues[i] = ref.issue
	}
	return issues, total, nil
}

// SetIssueTargetKey records the target issue found or created for a snapshot
// issue.
func SetIssueTargetKey(ex execer, issueID int, targetKey string) error {
	res, err := ex.Exec(`UPDATE issues SET target_key = ? WHERE id = ?`, nullString(targetKey), issueID)
	if err != nil {
		return fmt.Errorf("setting target key for issue %d: %w", issueID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const issueColumns = `id, key, summary, created_at, parent_key, assignee_id, reporter_id,
	status, type, priority, description, target_key`

type issueRow struct {
	issue      *model.Issue
	assigneeID int
	reporterID int
}

func scanIssue(s scanner) (issueRow, error) {
	var i model.Issue
	var createdAt string
	var parentKey, description, targetKey sql.NullString
	var assigneeID, reporterID sql.NullInt64
	var status, typ, priority string

	err := s.Scan(
		&i.ID, &i.Key, &i.Summary, &createdAt, &parentKey, &assigneeID, &reporterID,
		&status, &typ, &priority, &description, &targetKey,
	)
	if err != nil {
		return issueRow{}, err
	}

	i.ParentKey = parentKey.String
	i.TargetKey = targetKey.String
	i.Status = model.SourceStatus(status)
	i.Type = model.SourceIssueType(typ)
	i.Priority = model.SourcePriority(priority)

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return issueRow{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t

	if i.Description, err = decodeDocument(description); err != nil {
		return issueRow{}, fmt.Errorf("decoding %s description: %w", i.Key, err)
	}

	return issueRow{
		issue:      &i,
		assigneeID: int(assigneeID.Int64),
		reporterID: int(reporterID.Int64),
	}, nil
}

// hydrate attaches users, comments and attachments to scanned issues.
func hydrate(q queryer, refs []issueRow) error {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]int, 0, len(refs))
	var userIDs []int
	for _, ref := range refs {
		ids = append(ids, ref.issue.ID)
		if ref.assigneeID != 0 {
			userIDs = append(userIDs, ref.assigneeID)
		}
		if ref.reporterID != 0 {
			userIDs = append(userIDs, ref.reporterID)
		}
	}

	users, err := getUsersByIDs(q, userIDs)
	if err != nil {
		return err
	}
	comments, err := listCommentsFor(q, ids)
	if err != nil {
		return err
	}
	attachments, err := listAttachmentsFor(q, ids)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		i := ref.issue
		i.Assignee = users[ref.assigneeID]
		i.Reporter = users[ref.reporterID]
		i.Comments = comments[i.ID]
		if i.Comments == nil {
			i.Comments = make([]*model.Comment, 0)
		}
		i.Attachments = attachments[i.ID]
		if i.Attachments == nil {
			i.Attachments = make([]*model.Attachment, 0)
		}
	}
	return nil
}
