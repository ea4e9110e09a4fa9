// Package migrate moves issues between two Jira Cloud sites through the
// snapshot store. Pull copies source issues, users, comments and attachment
// bytes into the snapshot; push replays the snapshot onto the target.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/jira"
)

// Source is the subset of the Jira client the pull pipeline reads from.
type Source interface {
	SearchJQL(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error)
	AttachmentContent(ctx context.Context, id string) ([]byte, error)
	MediaID(ctx context.Context, attachmentID string) (string, bool, error)
}

// Target is the subset of the Jira client the push pipeline writes to.
type Target interface {
	SearchJQL(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error)
	GetProject(ctx context.Context, idOrKey string) (*jira.Project, error)
	CreateMetaIssueTypes(ctx context.Context, project string) ([]jira.IssueTypeMeta, error)
	CreateMetaFields(ctx context.Context, project, issueTypeID string) (json.RawMessage, error)
	GetTransitions(ctx context.Context, idOrKey string) ([]jira.Transition, error)
	CreateIssue(ctx context.Context, fields map[string]any) (*jira.CreatedIssue, error)
	EditIssue(ctx context.Context, idOrKey string, fields map[string]any, transition *jira.Transition) error
	DeleteIssue(ctx context.Context, idOrKey string, deleteSubtasks bool) error
	AddComment(ctx context.Context, idOrKey string, body *adf.Document) (*jira.Comment, error)
	UploadAttachments(ctx context.Context, idOrKey string, files []jira.UploadFile) ([]jira.Attachment, error)
	MediaID(ctx context.Context, attachmentID string) (string, bool, error)
	FindUsers(ctx context.Context, query string) ([]jira.User, error)
}

var (
	_ Source = (*jira.Client)(nil)
	_ Target = (*jira.Client)(nil)
)

// ErrCreateUnconfirmed is returned when a created target issue never shows
// up in search within the confirmation budget.
var ErrCreateUnconfirmed = errors.New("created issue not found by search")

// SourceFields are the issue fields requested from the source search.
var SourceFields = []string{
	"assignee",
	"summary",
	"created",
	"reporter",
	"creator",
	"description",
	"issuetype",
	"status",
	"parent",
	"priority",
	"attachment",
	"comment",
}

// PullStats counts the work done by a pull run.
type PullStats struct {
	Pages              int   `json:"pages"`
	Issues             int   `json:"issues"`
	Comments           int   `json:"comments"`
	AttachmentsStored  int   `json:"attachments_stored"`
	AttachmentsSkipped int   `json:"attachments_skipped"`
	AttachmentsNoMime  int   `json:"attachments_no_mime"`
	BytesStored        int64 `json:"bytes_stored"`
}

// PushStats counts the work done by a push run.
type PushStats struct {
	UsersResolved       int `json:"users_resolved"`
	UsersUnresolved     int `json:"users_unresolved"`
	Issues              int `json:"issues"`
	IssuesSkipped       int `json:"issues_skipped"`
	IssuesCreated       int `json:"issues_created"`
	IssuesFound         int `json:"issues_found"`
	DuplicatesDeleted   int `json:"duplicates_deleted"`
	AttachmentsUploaded int `json:"attachments_uploaded"`
	CommentsPosted      int `json:"comments_posted"`
	EditsFailed         int `json:"edits_failed"`
}

func quoteJQL(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func issueErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
