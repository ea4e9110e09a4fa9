package model

import "time"

// Activity records a pipeline event on a snapshot issue, such as the pull
// that refreshed it or the push that created its target counterpart.
type Activity struct {
	ID        int       `json:"-"`
	IssueID   int       `json:"-"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	Pipeline  string    `json:"pipeline"`
	CreatedAt time.Time `json:"created_at"`
}
