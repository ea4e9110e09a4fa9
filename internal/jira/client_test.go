package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	return newClient(base, NewBasicAuth("bot@example.com", "secret"), srv.Client())
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("adds https scheme and trailing slash", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("example.atlassian.net", nil, 0)
		require.NoError(t, err)
		assert.Equal(t, "https://example.atlassian.net/", c.BaseURL.String())
		assert.Equal(t, DefaultTimeout, c.HTTPClient.Timeout)
	})

	t.Run("keeps explicit scheme", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("http://localhost:8080/", nil, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/", c.BaseURL.String())
	})

	t.Run("rejects empty host", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient("  ", nil, 0)
		assert.Error(t, err)
	})
}

func TestNewBasicAuth(t *testing.T) {
	t.Parallel()

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	NewBasicAuth(" user@example.com ", " token123 ")(req)

	username, password, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user@example.com", username)
	assert.Equal(t, "token123", password)
}

func TestSearchJQL(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/rest/api/3/search/jql", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)

		var req SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, `project = "SOURCE"`, req.JQL)
		assert.Equal(t, "tok-1", req.NextPageToken)
		assert.Equal(t, []string{"summary", "comment"}, req.Fields)

		w.Write([]byte(`{
			"issues": [{
				"id": "10001",
				"key": "SRC-1",
				"fields": {
					"summary": "First",
					"created": "2024-03-01T10:15:30.000+0100",
					"status": {"name": "In Progress"},
					"description": {"type": "doc", "version": 1, "content": [{"type": "paragraph", "content": [{"type": "text", "text": "hi"}]}]},
					"comment": {"comments": [{"id": "500", "author": {"accountId": "a1"}, "body": {"type": "doc", "version": 1, "content": []}}], "total": 1}
				}
			}],
			"nextPageToken": "tok-2"
		}`)) // nolint:errcheck
	})

	res, err := c.SearchJQL(context.Background(), SearchRequest{
		JQL:           `project = "SOURCE"`,
		Fields:        []string{"summary", "comment"},
		NextPageToken: "tok-1",
	})
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "tok-2", res.NextPageToken)

	issue := res.Issues[0]
	assert.Equal(t, "SRC-1", issue.Key)
	assert.Equal(t, "In Progress", issue.Fields.Status.Name)
	require.NotNil(t, issue.Fields.Description)
	assert.Equal(t, "hi", issue.Fields.Description.Content[0].Content[0].Text)
	require.Len(t, issue.Comments(), 1)
	assert.Equal(t, "500", issue.Comments()[0].ID)
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorMessages":["Issue does not exist"]}`)) // nolint:errcheck
	})

	_, err := c.GetTransitions(context.Background(), "TARGET-404")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "/rest/api/3/issue/TARGET-404/transitions", apiErr.Path)
	assert.Contains(t, apiErr.Error(), "Issue does not exist")
}

func TestCreateEditDelete(t *testing.T) {
	t.Parallel()

	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		body, _ := io.ReadAll(r.Body)

		switch r.Method {
		case "POST":
			assert.JSONEq(t, `{"fields":{"summary":"New","project":{"id":"10000"}}}`, string(body))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"20001","key":"TARGET-7","self":"x"}`)) // nolint:errcheck
		case "PUT":
			assert.JSONEq(t, `{"fields":{"summary":"Edited"},"transition":{"id":"31"}}`, string(body))
			w.WriteHeader(http.StatusNoContent)
		case "DELETE":
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	created, err := c.CreateIssue(ctx, map[string]any{"summary": "New", "project": map[string]string{"id": "10000"}})
	require.NoError(t, err)
	assert.Equal(t, "TARGET-7", created.Key)

	require.NoError(t, c.EditIssue(ctx, "20001", map[string]any{"summary": "Edited"}, &Transition{ID: "31", Name: "Done"}))
	require.NoError(t, c.DeleteIssue(ctx, "20002", true))

	assert.Equal(t, []string{
		"POST /rest/api/3/issue",
		"PUT /rest/api/3/issue/20001",
		"DELETE /rest/api/3/issue/20002?deleteSubtasks=true",
	}, seen)
}

func TestAddComment(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/20001/comment", r.URL.Path)
		var payload struct {
			Body adf.Document `json:"body"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "doc", payload.Body.Type)
		w.Write([]byte(`{"id":"900"}`)) // nolint:errcheck
	})

	created, err := c.AddComment(context.Background(), "20001", adf.New(adf.Paragraph("hello")))
	require.NoError(t, err)
	assert.Equal(t, "900", created.ID)
}

func TestCreateMeta(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/api/3/project/TARGET":
			w.Write([]byte(`{"id":"10000","key":"TARGET","name":"Target"}`)) // nolint:errcheck
		case "/rest/api/3/issue/createmeta/TARGET/issuetypes":
			w.Write([]byte(`{"issueTypes":[{"id":"1","name":"Bug"},{"id":"2","name":"Task"}]}`)) // nolint:errcheck
		case "/rest/api/3/issue/createmeta/TARGET/issuetypes/1":
			w.Write([]byte(`{"fields":[{"key":"priority","name":"Priority","allowedValues":[{"id":"3","name":"High"}]}]}`)) // nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()
	p, err := c.GetProject(ctx, "TARGET")
	require.NoError(t, err)
	assert.Equal(t, "10000", p.ID)

	types, err := c.CreateMetaIssueTypes(ctx, "TARGET")
	require.NoError(t, err)
	assert.Equal(t, []IssueTypeMeta{{ID: "1", Name: "Bug"}, {ID: "2", Name: "Task"}}, types)

	fields, err := c.CreateMetaFields(ctx, "TARGET", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"priority","name":"Priority","allowedValues":[{"id":"3","name":"High"}]}]`, string(fields))
}

func TestFindUsers(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice@example.com", r.URL.Query().Get("query"))
		w.Write([]byte(`[{"accountId":"acc-1","emailAddress":"alice@example.com"},{"accountId":"acc-2"}]`)) // nolint:errcheck
	})

	users, err := c.FindUsers(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "acc-1", users[0].AccountID)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	got, err := ParseTime("2024-03-01T10:15:30.000+0100")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 15, 30, 0, time.UTC), got.UTC())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
