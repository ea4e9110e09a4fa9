package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// GetProject fetches a project by id or key.
func (c *Client) GetProject(ctx context.Context, idOrKey string) (*Project, error) {
	var p Project
	if err := c.doJSON(ctx, "GET", "rest/api/3/project/"+url.PathEscape(idOrKey), nil, nil, &p); err != nil {
		return nil, fmt.Errorf("get project %s: %w", idOrKey, err)
	}
	return &p, nil
}

// CreateMetaIssueTypes lists the issue types that can be created in a project.
func (c *Client) CreateMetaIssueTypes(ctx context.Context, project string) ([]IssueTypeMeta, error) {
	var page struct {
		IssueTypes []IssueTypeMeta `json:"issueTypes"`
	}
	path := "rest/api/3/issue/createmeta/" + url.PathEscape(project) + "/issuetypes"
	if err := c.doJSON(ctx, "GET", path, nil, nil, &page); err != nil {
		return nil, fmt.Errorf("get create metadata for %s: %w", project, err)
	}
	return page.IssueTypes, nil
}

// CreateMetaFields returns the raw field list of the create metadata for one
// issue type. Field shapes vary per field so decoding is left to callers.
func (c *Client) CreateMetaFields(ctx context.Context, project, issueTypeID string) (json.RawMessage, error) {
	var page struct {
		Fields json.RawMessage `json:"fields"`
	}
	path := "rest/api/3/issue/createmeta/" + url.PathEscape(project) + "/issuetypes/" + url.PathEscape(issueTypeID)
	query := url.Values{"maxResults": {"200"}}
	if err := c.doJSON(ctx, "GET", path, query, nil, &page); err != nil {
		return nil, fmt.Errorf("get create metadata for %s/%s: %w", project, issueTypeID, err)
	}
	return page.Fields, nil
}

// FindUsers searches users by a free-text query such as an email address.
func (c *Client) FindUsers(ctx context.Context, query string) ([]User, error) {
	var users []User
	if err := c.doJSON(ctx, "GET", "rest/api/3/user/search", url.Values{"query": {query}}, nil, &users); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}
