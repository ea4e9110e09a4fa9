package db

import (
	"testing"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

func TestGetCountsAndClearAllData(t *testing.T) {
	db := mustInit(t)

	a := testIssue("SRC-1")
	a.Assignee = &model.User{AccountID: "acc-1", Email: "a@example.com"}
	a.Comments = []*model.Comment{{SourceID: "1"}, {SourceID: "2"}}
	mustUpsertIssue(t, db, a)

	b := testIssue("SRC-2")
	b.Status = model.StatusDone
	mustUpsertIssue(t, db, b)

	if err := SetCommentTargetID(db, a.Comments[0].ID, "t-1"); err != nil {
		t.Fatalf("SetCommentTargetID: %v", err)
	}
	if err := SetIssueTargetKey(db, a.ID, "TGT-1"); err != nil {
		t.Fatalf("SetIssueTargetKey: %v", err)
	}
	att := &model.Attachment{IssueID: a.ID, SourceID: "9", MimeType: "image/png", BlobKey: "k", Size: 100}
	if _, err := CreateAttachment(db, att); err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}

	c, err := GetCounts(db)
	if err != nil {
		t.Fatalf("GetCounts: %v", err)
	}
	want := Counts{
		Issues:          2,
		IssuesPushed:    1,
		Comments:        2,
		CommentsPushed:  1,
		Attachments:     1,
		AttachmentBytes: 100,
		Users:           1,
	}
	if c.Issues != want.Issues || c.IssuesPushed != want.IssuesPushed ||
		c.Comments != want.Comments || c.CommentsPushed != want.CommentsPushed ||
		c.Attachments != want.Attachments || c.AttachmentsPushed != want.AttachmentsPushed ||
		c.AttachmentBytes != want.AttachmentBytes ||
		c.Users != want.Users || c.UsersResolved != want.UsersResolved {
		t.Errorf("counts = %+v, want %+v", *c, want)
	}
	if c.ByStatus["IN_PROGRESS"] != 1 || c.ByStatus["DONE"] != 1 {
		t.Errorf("ByStatus = %v", c.ByStatus)
	}

	if err := ClearAllData(db); err != nil {
		t.Fatalf("ClearAllData: %v", err)
	}
	c, err = GetCounts(db)
	if err != nil {
		t.Fatalf("GetCounts after clear: %v", err)
	}
	if c.Issues != 0 || c.Comments != 0 || c.Attachments != 0 || c.Users != 0 {
		t.Errorf("counts after clear = %+v", *c)
	}

	v, err := SchemaVersion(db)
	if err != nil || v != currentSchemaVersion {
		t.Errorf("SchemaVersion after clear = %d, %v", v, err)
	}
}
