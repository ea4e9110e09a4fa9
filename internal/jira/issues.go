package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
)

// SearchJQL fetches one page of the enhanced JQL search.
func (c *Client) SearchJQL(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	var result SearchResult
	if err := c.doJSON(ctx, "POST", "rest/api/3/search/jql", nil, req, &result); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return &result, nil
}

// CreateIssue creates an issue from fields.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	var created CreatedIssue
	payload := map[string]any{"fields": fields}
	if err := c.doJSON(ctx, "POST", "rest/api/3/issue", nil, payload, &created); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return &created, nil
}

// EditIssue updates fields on an issue and, when transition is non-nil,
// moves it through that transition in the same request.
func (c *Client) EditIssue(ctx context.Context, idOrKey string, fields map[string]any, transition *Transition) error {
	payload := map[string]any{"fields": fields}
	if transition != nil {
		payload["transition"] = map[string]string{"id": transition.ID}
	}
	path := "rest/api/3/issue/" + url.PathEscape(idOrKey)
	if err := c.doJSON(ctx, "PUT", path, nil, payload, nil); err != nil {
		return fmt.Errorf("edit issue %s: %w", idOrKey, err)
	}
	return nil
}

// DeleteIssue deletes an issue, optionally with its subtasks.
func (c *Client) DeleteIssue(ctx context.Context, idOrKey string, deleteSubtasks bool) error {
	query := url.Values{"deleteSubtasks": {strconv.FormatBool(deleteSubtasks)}}
	path := "rest/api/3/issue/" + url.PathEscape(idOrKey)
	if err := c.doJSON(ctx, "DELETE", path, query, nil, nil); err != nil {
		return fmt.Errorf("delete issue %s: %w", idOrKey, err)
	}
	return nil
}

// GetTransitions lists the transitions available on an issue.
func (c *Client) GetTransitions(ctx context.Context, idOrKey string) ([]Transition, error) {
	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	path := "rest/api/3/issue/" + url.PathEscape(idOrKey) + "/transitions"
	if err := c.doJSON(ctx, "GET", path, nil, nil, &result); err != nil {
		return nil, fmt.Errorf("get transitions for %s: %w", idOrKey, err)
	}
	return result.Transitions, nil
}

// AddComment posts a comment with an ADF body.
func (c *Client) AddComment(ctx context.Context, idOrKey string, body *adf.Document) (*Comment, error) {
	if body == nil {
		body = adf.New()
	}
	var created Comment
	path := "rest/api/3/issue/" + url.PathEscape(idOrKey) + "/comment"
	if err := c.doJSON(ctx, "POST", path, nil, map[string]any{"body": body}, &created); err != nil {
		return nil, fmt.Errorf("add comment to %s: %w", idOrKey, err)
	}
	return &created, nil
}
