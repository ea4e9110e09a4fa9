package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/blob"
	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/logging"
)

const testKeyField = "customfield_10000"

func newStore(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Initialize(conn))
	return conn
}

func newBlobs(t *testing.T) *blob.FSStore {
	t.Helper()
	s, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

// fakeSource serves fixed search pages chained by continuation tokens.
type fakeSource struct {
	mu sync.Mutex

	pages   []jira.SearchResult
	content map[string][]byte
	media   map[string]string

	contentErr error

	tokens        []string
	contentCalls  []string
	mediaIDCalls  []string
	searchRequest jira.SearchRequest
}

func (f *fakeSource) SearchJQL(_ context.Context, req jira.SearchRequest) (*jira.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = append(f.tokens, req.NextPageToken)
	f.searchRequest = req
	idx := 0
	if req.NextPageToken != "" {
		if _, err := fmt.Sscanf(req.NextPageToken, "page-%d", &idx); err != nil {
			return nil, fmt.Errorf("bad token %q", req.NextPageToken)
		}
	}
	if idx >= len(f.pages) {
		return &jira.SearchResult{}, nil
	}
	page := f.pages[idx]
	return &page, nil
}

func (f *fakeSource) AttachmentContent(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.contentCalls = append(f.contentCalls, id)
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	body, ok := f.content[id]
	if !ok {
		return nil, &jira.APIError{Method: "GET", Path: "attachment/content/" + id, StatusCode: 404}
	}
	return body, nil
}

func (f *fakeSource) MediaID(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mediaIDCalls = append(f.mediaIDCalls, id)
	m, ok := f.media[id]
	return m, ok, nil
}

type editCall struct {
	id         string
	fields     map[string]any
	transition *jira.Transition
}

type commentCall struct {
	id   string
	body *adf.Document
}

type uploadCall struct {
	key   string
	files []jira.UploadFile
}

type targetIssue struct {
	issue        jira.Issue
	sourceKey    string
	hiddenFor    int
	neverVisible bool
	deleted      bool
}

// fakeTarget is an in-memory target site.
type fakeTarget struct {
	mu sync.Mutex

	project     jira.Project
	types       []jira.IssueTypeMeta
	fields      map[string]json.RawMessage
	transitions []jira.Transition
	users       []jira.User

	// hideSearches is how many searches a created issue stays invisible for.
	hideSearches int
	neverVisible bool
	editErr      func(id string) error
	// goneOnDelete marks issue ids another actor removes before our delete.
	goneOnDelete map[string]bool

	issues  []*targetIssue
	nextID  int
	mediaOf map[string]string

	searches  []string
	creates   []map[string]any
	deletes   []string
	edits     []editCall
	comments  []commentCall
	uploads   []uploadCall
	userCalls []string
}

const priorityFields = `[
	{"key": "summary", "name": "Summary"},
	{"key": "priority", "name": "Priority", "allowedValues": [
		{"id": "1", "name": "Blocker"},
		{"id": "2", "name": "High"},
		{"id": "3", "name": "Medium"},
		{"id": "4", "name": "Low"}
	]}
]`

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		project: jira.Project{ID: "10500", Key: "TGT", Name: "Target"},
		types: []jira.IssueTypeMeta{
			{ID: "10001", Name: "Task"},
			{ID: "10002", Name: "Bug"},
			{ID: "10003", Name: "Story"},
		},
		fields: map[string]json.RawMessage{
			"10001": json.RawMessage(priorityFields),
			"10002": json.RawMessage(priorityFields),
			"10003": json.RawMessage(`{"not": "a list"}`),
		},
		transitions: []jira.Transition{
			{ID: "21", Name: "In Progress"},
			{ID: "31", Name: "Completed"},
			{ID: "41", Name: "Dev Ready"},
		},
		mediaOf: make(map[string]string),
	}
}

func (f *fakeTarget) addExisting(sourceKey string) *jira.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &f.newIssue(sourceKey).issue
}

func (f *fakeTarget) newIssue(sourceKey string) *targetIssue {
	f.nextID++
	ti := &targetIssue{
		issue: jira.Issue{
			ID:  fmt.Sprintf("%d", 20000+f.nextID),
			Key: fmt.Sprintf("TGT-%d", f.nextID),
		},
		sourceKey: sourceKey,
	}
	f.issues = append(f.issues, ti)
	return ti
}

func (f *fakeTarget) find(idOrKey string) *targetIssue {
	for _, ti := range f.issues {
		if !ti.deleted && (ti.issue.ID == idOrKey || ti.issue.Key == idOrKey) {
			return ti
		}
	}
	return nil
}

func (f *fakeTarget) SearchJQL(_ context.Context, req jira.SearchRequest) (*jira.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searches = append(f.searches, req.JQL)
	var out []jira.Issue
	for _, ti := range f.issues {
		if ti.deleted || !strings.Contains(req.JQL, quoteJQL(ti.sourceKey)) {
			continue
		}
		if ti.neverVisible {
			continue
		}
		if ti.hiddenFor > 0 {
			ti.hiddenFor--
			continue
		}
		issue := ti.issue
		issue.Fields.Attachment = append([]jira.Attachment(nil), ti.issue.Fields.Attachment...)
		out = append(out, issue)
	}
	return &jira.SearchResult{Issues: out}, nil
}

func (f *fakeTarget) GetProject(_ context.Context, key string) (*jira.Project, error) {
	if key != f.project.Key {
		return nil, &jira.APIError{Method: "GET", Path: "project/" + key, StatusCode: 404}
	}
	p := f.project
	return &p, nil
}

func (f *fakeTarget) CreateMetaIssueTypes(context.Context, string) ([]jira.IssueTypeMeta, error) {
	return f.types, nil
}

func (f *fakeTarget) CreateMetaFields(_ context.Context, _ string, issueTypeID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields[issueTypeID], nil
}

func (f *fakeTarget) GetTransitions(context.Context, string) ([]jira.Transition, error) {
	return f.transitions, nil
}

func (f *fakeTarget) CreateIssue(_ context.Context, fields map[string]any) (*jira.CreatedIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, fields)
	sourceKey, _ := fields[testKeyField].(string)
	ti := f.newIssue(sourceKey)
	ti.hiddenFor = f.hideSearches
	ti.neverVisible = f.neverVisible
	return &jira.CreatedIssue{ID: ti.issue.ID, Key: ti.issue.Key}, nil
}

func (f *fakeTarget) EditIssue(_ context.Context, id string, fields map[string]any, transition *jira.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, editCall{id: id, fields: fields, transition: transition})
	if f.editErr != nil {
		return f.editErr(id)
	}
	return nil
}

func (f *fakeTarget) DeleteIssue(_ context.Context, id string, deleteSubtasks bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !deleteSubtasks {
		return errors.New("expected deleteSubtasks")
	}
	ti := f.find(id)
	if ti != nil && f.goneOnDelete[id] {
		ti.deleted = true
		ti = nil
	}
	if ti == nil {
		return &jira.APIError{Method: "DELETE", Path: "issue/" + id, StatusCode: 404}
	}
	ti.deleted = true
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeTarget) AddComment(_ context.Context, id string, body *adf.Document) (*jira.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.comments = append(f.comments, commentCall{id: id, body: body})
	return &jira.Comment{ID: fmt.Sprintf("%d", 90000+len(f.comments)), Body: body}, nil
}

func (f *fakeTarget) UploadAttachments(_ context.Context, key string, files []jira.UploadFile) ([]jira.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploads = append(f.uploads, uploadCall{key: key, files: files})
	ti := f.find(key)
	if ti == nil {
		return nil, &jira.APIError{Method: "POST", Path: "issue/" + key + "/attachments", StatusCode: 404}
	}
	var out []jira.Attachment
	for _, file := range files {
		n := len(f.mediaOf) + 1
		a := jira.Attachment{
			ID:       fmt.Sprintf("%d", 30000+n),
			Filename: file.Filename,
			MimeType: file.ContentType,
			Size:     int64(len(file.Data)),
		}
		f.mediaOf[a.ID] = fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
		ti.issue.Fields.Attachment = append(ti.issue.Fields.Attachment, a)
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeTarget) MediaID(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mediaOf[id]
	return m, ok, nil
}

func (f *fakeTarget) FindUsers(_ context.Context, query string) ([]jira.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.userCalls = append(f.userCalls, query)
	var out []jira.User
	for _, u := range f.users {
		if strings.Contains(u.EmailAddress, query) {
			out = append(out, u)
		}
	}
	return out, nil
}

func newPusher(t *testing.T, target *fakeTarget, store *sql.DB, blobs blob.Store) *Pusher {
	t.Helper()
	return &Pusher{
		Target:          target,
		Store:           store,
		Blobs:           blobs,
		Project:         "TGT",
		SourceKeyField:  testKeyField,
		DefaultReporter: "default-reporter",
		TransitionIssue: "TGT-1",
		ConfirmPolicy:   retry0(),
		Logger:          logging.Discard(),
	}
}
