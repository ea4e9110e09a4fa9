package model

import (
	"encoding/json"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
)

// Comment is the snapshot of a source tracker comment.
type Comment struct {
	ID       int
	IssueID  int
	SourceID string
	Body     *adf.Document
	Author   *User
	TargetID string
}

// Pushed reports whether the comment has already been posted to the target.
func (c *Comment) Pushed() bool {
	return c.TargetID != ""
}

// AuthorOrAnonymous returns the author display name, falling back to
// "anonymous" when the comment has no author.
func (c Comment) AuthorOrAnonymous() string {
	if c.Author == nil || c.Author.DisplayName == "" {
		return "anonymous"
	}
	return c.Author.DisplayName
}

// commentJSON is the JSON wire format for Comment.
type commentJSON struct {
	SourceID string        `json:"source_id"`
	Author   string        `json:"author"`
	Body     *adf.Document `json:"body,omitempty"`
	TargetID string        `json:"target_id,omitempty"`
}

// MarshalJSON implements custom JSON serialization for Comment.
func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(commentJSON{
		SourceID: c.SourceID,
		Author:   c.AuthorOrAnonymous(),
		Body:     c.Body,
		TargetID: c.TargetID,
	})
}
