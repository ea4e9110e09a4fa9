package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// ErrDuplicateAttachment is returned when an attachment with the same source
// id is already recorded for the issue.
var ErrDuplicateAttachment = errors.New("attachment already recorded")

// CreateAttachment records a snapshot attachment whose bytes have been stored
// under a.BlobKey. a.ID is set to the new row id.
func CreateAttachment(ex execer, a *model.Attachment) (int, error) {
	if a.MimeType == "" {
		return 0, fmt.Errorf("creating attachment %s: mime type is required", a.SourceID)
	}
	if a.BlobKey == "" {
		return 0, fmt.Errorf("creating attachment %s: blob key is required", a.SourceID)
	}

	res, err := ex.Exec(
		`INSERT OR IGNORE INTO attachments
			(issue_id, source_id, filename, mime_type, size, blob_key, source_media_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.IssueID,
		a.SourceID,
		nullString(a.Filename),
		a.MimeType,
		a.Size,
		a.BlobKey,
		nullString(a.SourceMediaID),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting attachment %s: %w", a.SourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("attachment %s: %w", a.SourceID, ErrDuplicateAttachment)
	}

	id64, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	a.ID = int(id64)
	return a.ID, nil
}

// ListAttachments returns the attachments of an issue in insertion order.
func ListAttachments(db *sql.DB, issueID int) ([]*model.Attachment, error) {
	byIssue, err := listAttachmentsFor(db, []int{issueID})
	if err != nil {
		return nil, err
	}
	attachments := byIssue[issueID]
	if attachments == nil {
		attachments = make([]*model.Attachment, 0)
	}
	return attachments, nil
}

// SetAttachmentTarget records the target attachment id and target media id
// of an uploaded attachment. An empty media id is stored as NULL so the
// attachment is left out of media remapping.
func SetAttachmentTarget(ex execer, attachmentID int, targetID, targetMediaID string) error {
	if targetID == "" {
		return fmt.Errorf("setting target for attachment %d: empty target id", attachmentID)
	}
	res, err := ex.Exec(
		`UPDATE attachments SET target_id = ?, target_media_id = ? WHERE id = ?`,
		targetID, nullString(targetMediaID), attachmentID,
	)
	if err != nil {
		return fmt.Errorf("setting target for attachment %d: %w", attachmentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func listAttachmentsFor(q queryer, issueIDs []int) (map[int][]*model.Attachment, error) {
	out := make(map[int][]*model.Attachment, len(issueIDs))
	if len(issueIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}
	rows, err := q.Query(
		fmt.Sprintf(
			`SELECT id, issue_id, source_id, filename, mime_type, size, blob_key,
				source_media_id, target_id, target_media_id
			 FROM attachments WHERE issue_id IN (%s) ORDER BY id ASC`,
			makePlaceholders(len(issueIDs)),
		),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		out[a.IssueID] = append(out[a.IssueID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachment rows: %w", err)
	}

	return out, nil
}

func scanAttachment(s scanner) (*model.Attachment, error) {
	var a model.Attachment
	var filename, sourceMedia, target, targetMedia sql.NullString
	err := s.Scan(
		&a.ID, &a.IssueID, &a.SourceID, &filename, &a.MimeType, &a.Size, &a.BlobKey,
		&sourceMedia, &target, &targetMedia,
	)
	if err != nil {
		return nil, err
	}
	a.Filename = filename.String
	a.SourceMediaID = sourceMedia.String
	a.TargetID = target.String
	a.TargetMediaID = targetMedia.String
	return &a, nil
}
