package jira

import (
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
)

// User is a Jira account.
type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

// Named is the id/name pair Jira uses for statuses, priorities and issue types.
type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ParentRef identifies an issue's parent.
type ParentRef struct {
	ID  string `json:"id,omitempty"`
	Key string `json:"key"`
}

// Attachment is an attachment on an issue.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Content  string `json:"content,omitempty"`
	Created  string `json:"created,omitempty"`
}

// Comment is an issue comment with an ADF body.
type Comment struct {
	ID      string        `json:"id"`
	Author  *User         `json:"author,omitempty"`
	Body    *adf.Document `json:"body,omitempty"`
	Created string        `json:"created,omitempty"`
}

// CommentPage is the comment field as embedded in issue responses.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	Total      int       `json:"total"`
	MaxResults int       `json:"maxResults"`
	StartAt    int       `json:"startAt"`
}

// IssueFields holds the issue fields requested by this package.
type IssueFields struct {
	Summary     string        `json:"summary"`
	Created     string        `json:"created,omitempty"`
	Assignee    *User         `json:"assignee,omitempty"`
	Reporter    *User         `json:"reporter,omitempty"`
	Creator     *User         `json:"creator,omitempty"`
	Description *adf.Document `json:"description,omitempty"`
	IssueType   *Named        `json:"issuetype,omitempty"`
	Status      *Named        `json:"status,omitempty"`
	Priority    *Named        `json:"priority,omitempty"`
	Parent      *ParentRef    `json:"parent,omitempty"`
	Attachment  []Attachment  `json:"attachment,omitempty"`
	Comment     *CommentPage  `json:"comment,omitempty"`
}

// Issue is a Jira issue as returned by search.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self,omitempty"`
	Fields IssueFields `json:"fields"`
}

// Comments returns the issue's embedded comments.
func (i *Issue) Comments() []Comment {
	if i.Fields.Comment == nil {
		return nil
	}
	return i.Fields.Comment.Comments
}

// SearchRequest is the body of an enhanced JQL search.
type SearchRequest struct {
	JQL           string   `json:"jql"`
	Fields        []string `json:"fields,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
	Expand        string   `json:"expand,omitempty"`
}

// SearchResult is one page of an enhanced JQL search. IsLast or an empty
// NextPageToken marks the last page.
type SearchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	IsLast        bool    `json:"isLast,omitempty"`
}

// Project is a Jira project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueTypeMeta is an issue type offered by the create-issue metadata.
type IssueTypeMeta struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask,omitempty"`
}

// AllowedValue is one permitted value of a create-metadata field.
type AllowedValue struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   *Named `json:"to,omitempty"`
}

// CreatedIssue is the response of issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// UploadFile is one file of a multipart attachment upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTime parses a Jira timestamp such as 2024-03-01T10:15:30.000+0100.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized jira timestamp %q", s)
}
