package migrate

import (
	"fmt"

	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// SnapshotIssue converts a source search result into a snapshot issue.
// Comments without an id are dropped. An issue whose reporter was cleared is
// attributed to its creator.
func SnapshotIssue(src *jira.Issue) (*model.Issue, error) {
	f := src.Fields
	issue := &model.Issue{
		Key:         src.Key,
		Summary:     f.Summary,
		Assignee:    snapshotUser(f.Assignee),
		Reporter:    snapshotUser(f.Reporter),
		Status:      model.ParseSourceStatus(nameOf(f.Status)),
		Type:        model.ParseSourceIssueType(nameOf(f.IssueType)),
		Priority:    model.ParseSourcePriority(nameOf(f.Priority)),
		Description: f.Description,
	}
	if issue.Reporter == nil {
		issue.Reporter = snapshotUser(f.Creator)
	}
	if f.Parent != nil {
		issue.ParentKey = f.Parent.Key
	}
	if f.Created != "" {
		created, err := jira.ParseTime(f.Created)
		if err != nil {
			return nil, fmt.Errorf("parsing created: %w", err)
		}
		issue.CreatedAt = created
	}

	for _, c := range src.Comments() {
		if c.ID == "" {
			continue
		}
		issue.Comments = append(issue.Comments, &model.Comment{
			SourceID: c.ID,
			Body:     c.Body,
			Author:   snapshotUser(c.Author),
		})
	}
	return issue, nil
}

func snapshotUser(u *jira.User) *model.User {
	if u == nil || u.AccountID == "" {
		return nil
	}
	return &model.User{
		AccountID:   u.AccountID,
		Email:       u.EmailAddress,
		DisplayName: u.DisplayName,
	}
}

func nameOf(n *jira.Named) string {
	if n == nil {
		return ""
	}
	return n.Name
}
