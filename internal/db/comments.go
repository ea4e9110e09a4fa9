package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// UpsertComment inserts c under issueID keyed by its source id, or refreshes
// the body and author of an existing row. The target id is never touched.
// c.ID and c.IssueID are set from the stored row.
func UpsertComment(q queryer, issueID int, c *model.Comment) (int, error) {
	if c.SourceID == "" {
		return 0, fmt.Errorf("upserting comment: source id is required")
	}

	var authorID any
	if c.Author != nil && c.Author.AccountID != "" {
		id, err := UpsertUser(q, c.Author)
		if err != nil {
			return 0, err
		}
		authorID = id
	}

	body, err := encodeDocument(c.Body)
	if err != nil {
		return 0, fmt.Errorf("encoding comment %s body: %w", c.SourceID, err)
	}

	var id int
	err = q.QueryRow(
		`INSERT INTO comments (issue_id, source_id, body, author_id)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(issue_id, source_id) DO UPDATE SET
			body = excluded.body,
			author_id = excluded.author_id
		 RETURNING id`,
		issueID, c.SourceID, body, authorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting comment %s: %w", c.SourceID, err)
	}

	c.ID = id
	c.IssueID = issueID
	return id, nil
}

// SetCommentTargetID records the id of the target comment posted for a
// snapshot comment. An id already recorded is kept.
func SetCommentTargetID(ex execer, commentID int, targetID string) error {
	if targetID == "" {
		return fmt.Errorf("setting target id for comment %d: empty target id", commentID)
	}
	_, err := ex.Exec(
		`UPDATE comments SET target_id = ? WHERE id = ? AND target_id IS NULL`,
		targetID, commentID,
	)
	if err != nil {
		return fmt.Errorf("setting target id for comment %d: %w", commentID, err)
	}
	return nil
}

// ListComments retrieves all comments for an issue in insertion order, with
// authors hydrated.
func ListComments(db *sql.DB, issueID int) ([]*model.Comment, error) {
	byIssue, err := listCommentsFor(db, []int{issueID})
	if err != nil {
		return nil, err
	}
	comments := byIssue[issueID]
	if comments == nil {
		comments = make([]*model.Comment, 0)
	}
	return comments, nil
}

// listCommentsFor loads the comments of several issues keyed by issue id.
func listCommentsFor(q queryer, issueIDs []int) (map[int][]*model.Comment, error) {
	out := make(map[int][]*model.Comment, len(issueIDs))
	if len(issueIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}
	rows, err := q.Query(
		fmt.Sprintf(
			`SELECT id, issue_id, source_id, body, author_id, target_id
			 FROM comments WHERE issue_id IN (%s) ORDER BY id ASC`,
			makePlaceholders(len(issueIDs)),
		),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}

	var all []*model.Comment
	authorOf := make(map[*model.Comment]int)
	var authorIDs []int
	for rows.Next() {
		var c model.Comment
		var body, target sql.NullString
		var authorID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.IssueID, &c.SourceID, &body, &authorID, &target); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		c.TargetID = target.String
		if c.Body, err = decodeDocument(body); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding comment %s body: %w", c.SourceID, err)
		}
		if authorID.Valid {
			authorOf[&c] = int(authorID.Int64)
			authorIDs = append(authorIDs, int(authorID.Int64))
		}
		all = append(all, &c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	rows.Close()

	users, err := getUsersByIDs(q, authorIDs)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if id, ok := authorOf[c]; ok {
			c.Author = users[id]
		}
		out[c.IssueID] = append(out[c.IssueID], c)
	}

	return out, nil
}

func encodeDocument(doc *adf.Document) (any, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeDocument(s sql.NullString) (*adf.Document, error) {
	if !s.Valid {
		return nil, nil
	}
	return adf.Parse([]byte(s.String))
}
