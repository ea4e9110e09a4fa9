package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

func testIssue(key string) *model.Issue {
	return &model.Issue{
		Key:       key,
		Summary:   "Summary of " + key,
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Status:    model.StatusInProgress,
		Type:      model.IssueTypeBug,
		Priority:  model.PriorityHigh,
	}
}

func mustUpsertIssue(t *testing.T, conn *sql.DB, issue *model.Issue) int {
	t.Helper()
	id, err := UpsertIssue(conn, issue)
	if err != nil {
		t.Fatalf("UpsertIssue(%s): %v", issue.Key, err)
	}
	return id
}

func TestUpsertIssueRoundTrip(t *testing.T) {
	db := mustInit(t)

	issue := testIssue("SRC-1")
	issue.ParentKey = "SRC-0"
	issue.Assignee = &model.User{AccountID: "acc-a", Email: "a@example.com", DisplayName: "Alice"}
	issue.Reporter = &model.User{AccountID: "acc-b", DisplayName: "Bob"}
	issue.Description = adf.New(adf.Paragraph("hello"))
	issue.Comments = []*model.Comment{
		{SourceID: "100", Body: adf.New(adf.Paragraph("first")), Author: issue.Reporter},
		{SourceID: "101", Body: adf.New(adf.Paragraph("second"))},
	}

	id := mustUpsertIssue(t, db, issue)
	if issue.ID != id {
		t.Errorf("issue.ID = %d, want %d", issue.ID, id)
	}

	got, err := GetIssueByKey(db, "SRC-1")
	if err != nil {
		t.Fatalf("GetIssueByKey: %v", err)
	}
	if got.Summary != issue.Summary || got.ParentKey != "SRC-0" {
		t.Errorf("got summary=%q parent=%q", got.Summary, got.ParentKey)
	}
	if !got.CreatedAt.Equal(issue.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, issue.CreatedAt)
	}
	if got.Status != model.StatusInProgress || got.Type != model.IssueTypeBug || got.Priority != model.PriorityHigh {
		t.Errorf("enums = %s/%s/%s", got.Status, got.Type, got.Priority)
	}
	if got.Assignee == nil || got.Assignee.Email != "a@example.com" {
		t.Errorf("Assignee = %+v", got.Assignee)
	}
	if got.Reporter == nil || got.Reporter.DisplayName != "Bob" {
		t.Errorf("Reporter = %+v", got.Reporter)
	}
	if got.Description == nil || adf.PlainText(got.Description) != "hello" {
		t.Errorf("Description = %+v", got.Description)
	}
	if len(got.Comments) != 2 {
		t.Fatalf("len(Comments) = %d, want 2", len(got.Comments))
	}
	if got.Comments[0].SourceID != "100" || got.Comments[1].SourceID != "101" {
		t.Errorf("comment order = %s, %s", got.Comments[0].SourceID, got.Comments[1].SourceID)
	}
	if got.Comments[0].Author == nil || got.Comments[0].Author.AccountID != "acc-b" {
		t.Errorf("first comment author = %+v", got.Comments[0].Author)
	}
	if got.Comments[1].Author != nil {
		t.Errorf("second comment author = %+v, want nil", got.Comments[1].Author)
	}
	if len(got.Attachments) != 0 {
		t.Errorf("len(Attachments) = %d, want 0", len(got.Attachments))
	}
}

func TestUpsertIssueRefreshKeepsIdentity(t *testing.T) {
	db := mustInit(t)

	issue := testIssue("SRC-1")
	issue.Comments = []*model.Comment{{SourceID: "100", Body: adf.New(adf.Paragraph("v1"))}}
	first := mustUpsertIssue(t, db, issue)

	got, err := GetIssueByKey(db, "SRC-1")
	if err != nil {
		t.Fatalf("GetIssueByKey: %v", err)
	}
	if err := SetCommentTargetID(db, got.Comments[0].ID, "9000"); err != nil {
		t.Fatalf("SetCommentTargetID: %v", err)
	}
	if err := SetIssueTargetKey(db, first, "TGT-7"); err != nil {
		t.Fatalf("SetIssueTargetKey: %v", err)
	}

	refreshed := testIssue("SRC-1")
	refreshed.Summary = "Renamed"
	refreshed.Status = model.StatusDone
	refreshed.Comments = []*model.Comment{
		{SourceID: "100", Body: adf.New(adf.Paragraph("v2"))},
		{SourceID: "102", Body: adf.New(adf.Paragraph("new"))},
	}
	second := mustUpsertIssue(t, db, refreshed)
	if first != second {
		t.Errorf("refresh changed id: %d -> %d", first, second)
	}

	got, err = GetIssueByKey(db, "SRC-1")
	if err != nil {
		t.Fatalf("GetIssueByKey: %v", err)
	}
	if got.Summary != "Renamed" || got.Status != model.StatusDone {
		t.Errorf("refresh not applied: %q %s", got.Summary, got.Status)
	}
	if got.TargetKey != "TGT-7" {
		t.Errorf("TargetKey = %q, want TGT-7", got.TargetKey)
	}
	if len(got.Comments) != 2 {
		t.Fatalf("len(Comments) = %d, want 2", len(got.Comments))
	}
	if adf.PlainText(got.Comments[0].Body) != "v2" {
		t.Errorf("comment body = %q, want v2", adf.PlainText(got.Comments[0].Body))
	}
	if got.Comments[0].TargetID != "9000" {
		t.Errorf("comment TargetID = %q, want 9000", got.Comments[0].TargetID)
	}

	activity, err := GetActivity(db, first, 0)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if len(activity) != 2 {
		t.Fatalf("len(activity) = %d, want 2", len(activity))
	}
	if activity[0].Event != EventRefreshed || activity[1].Event != EventCreated {
		t.Errorf("events = %s, %s", activity[0].Event, activity[1].Event)
	}
	if activity[0].Pipeline != PipelinePull {
		t.Errorf("pipeline = %q, want %q", activity[0].Pipeline, PipelinePull)
	}
}

func TestUpsertIssueSkipsCommentsWithoutSourceID(t *testing.T) {
	db := mustInit(t)

	issue := testIssue("SRC-1")
	issue.Comments = []*model.Comment{{Body: adf.New()}, nil, {SourceID: "5"}}
	mustUpsertIssue(t, db, issue)

	comments, err := ListComments(db, issue.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].SourceID != "5" {
		t.Errorf("comments = %+v, want only source id 5", comments)
	}
	if comments[0].Body != nil {
		t.Errorf("nil body stored as %+v", comments[0].Body)
	}
}

func TestUpsertIssueSharesUsersAcrossIssues(t *testing.T) {
	db := mustInit(t)

	a := testIssue("SRC-1")
	a.Assignee = &model.User{AccountID: "acc-a", DisplayName: "Alice"}
	mustUpsertIssue(t, db, a)

	b := testIssue("SRC-2")
	b.Reporter = &model.User{AccountID: "acc-a", Email: "alice@example.com"}
	mustUpsertIssue(t, db, b)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("counting users: %v", err)
	}
	if count != 1 {
		t.Fatalf("users = %d, want 1", count)
	}

	got, err := GetIssueByKey(db, "SRC-1")
	if err != nil {
		t.Fatalf("GetIssueByKey: %v", err)
	}
	if got.Assignee.DisplayName != "Alice" || got.Assignee.Email != "alice@example.com" {
		t.Errorf("merged user = %+v", got.Assignee)
	}
}

func TestUpsertIssueRequiresKey(t *testing.T) {
	db := mustInit(t)

	if _, err := UpsertIssue(db, &model.Issue{Summary: "x"}); err == nil {
		t.Fatal("expected error for missing key, got nil")
	}
}

func TestGetIssueByKeyNotFound(t *testing.T) {
	db := mustInit(t)

	_, err := GetIssueByKey(db, "NOPE-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListIssuesInsertionOrderAndPaging(t *testing.T) {
	db := mustInit(t)

	keys := []string{"SRC-3", "SRC-1", "SRC-2", "SRC-10", "SRC-4"}
	for _, k := range keys {
		mustUpsertIssue(t, db, testIssue(k))
	}
	// Refreshing must not move an issue.
	mustUpsertIssue(t, db, testIssue("SRC-3"))

	var seen []string
	for offset := 0; ; {
		page, total, err := ListIssues(db, ListOptions{Limit: 2, Offset: offset})
		if err != nil {
			t.Fatalf("ListIssues: %v", err)
		}
		if total != len(keys) {
			t.Errorf("total = %d, want %d", total, len(keys))
		}
		if len(page) == 0 {
			break
		}
		for _, i := range page {
			seen = append(seen, i.Key)
		}
		offset += len(page)
	}

	if fmt.Sprint(seen) != fmt.Sprint(keys) {
		t.Errorf("order = %v, want %v", seen, keys)
	}
}

func TestListIssuesFilters(t *testing.T) {
	db := mustInit(t)

	done := testIssue("SRC-1")
	done.Status = model.StatusDone
	mustUpsertIssue(t, db, done)

	story := testIssue("SRC-2")
	story.Type = model.IssueTypeStory
	mustUpsertIssue(t, db, story)

	mustUpsertIssue(t, db, testIssue("SRC-3"))

	issues, total, err := ListIssues(db, ListOptions{Statuses: []string{string(model.StatusDone)}})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if total != 1 || len(issues) != 1 || issues[0].Key != "SRC-1" {
		t.Errorf("status filter = %d %v", total, issues)
	}

	issues, _, err = ListIssues(db, ListOptions{Types: []string{string(model.IssueTypeBug)}})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("type filter returned %d issues, want 2", len(issues))
	}
}

func TestListIssuesHydratesChildren(t *testing.T) {
	db := mustInit(t)

	for i := 1; i <= 3; i++ {
		issue := testIssue(fmt.Sprintf("SRC-%d", i))
		issue.Comments = []*model.Comment{{SourceID: fmt.Sprintf("c%d", i)}}
		id := mustUpsertIssue(t, db, issue)
		if _, err := CreateAttachment(db, &model.Attachment{
			IssueID:  id,
			SourceID: fmt.Sprintf("a%d", i),
			MimeType: "text/plain",
			BlobKey:  fmt.Sprintf("blob-%d", i),
		}); err != nil {
			t.Fatalf("CreateAttachment: %v", err)
		}
	}

	issues, _, err := ListIssues(db, ListOptions{})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	for i, issue := range issues {
		if len(issue.Comments) != 1 || issue.Comments[0].SourceID != fmt.Sprintf("c%d", i+1) {
			t.Errorf("%s comments = %+v", issue.Key, issue.Comments)
		}
		if len(issue.Attachments) != 1 || issue.Attachments[0].BlobKey != fmt.Sprintf("blob-%d", i+1) {
			t.Errorf("%s attachments = %+v", issue.Key, issue.Attachments)
		}
	}
}

func TestSetIssueTargetKeyUnknownIssue(t *testing.T) {
	db := mustInit(t)

	if err := SetIssueTargetKey(db, 42, "TGT-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
