package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/blob"
	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/mapping"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
	"github.com/ALT-F4-LLC/trackmove/internal/retry"
)

// DefaultPushPageSize is the number of snapshot issues read per page.
const DefaultPushPageSize = 10

// AttributionPrefix opens the line prepended to every pushed comment.
const AttributionPrefix = "Originally posted in Source Jira board"

// Pusher replays the snapshot onto the target project.
type Pusher struct {
	Target Target
	Store  *sql.DB
	Blobs  blob.Store

	Project         string
	SourceKeyField  string
	DefaultReporter string
	TransitionIssue string

	PageSize         int
	FetchConcurrency int

	// ConfirmPolicy governs polling for a just-created issue. The zero
	// value means DefaultConfirmPolicy.
	ConfirmPolicy retry.Policy

	Logger *slog.Logger

	stats *PushStats
}

// issueTypeInfo is an issue type offered by the target project along with
// the priority values its create screen allows.
type issueTypeInfo struct {
	meta       jira.IssueTypeMeta
	priorities []jira.AllowedValue
}

type targetMeta struct {
	project     *jira.Project
	issueTypes  map[string]issueTypeInfo
	transitions []jira.Transition
}

// Run resolves users, loads target metadata and pushes every snapshot issue
// in insertion order. Edit failures are logged and skipped; any other error
// ends the run.
func (p *Pusher) Run(ctx context.Context) (*PushStats, error) {
	logger := p.logger()
	p.stats = &PushStats{}

	if err := p.resolveUsers(ctx); err != nil {
		return p.stats, err
	}

	meta, err := p.loadMeta(ctx)
	if err != nil {
		return p.stats, err
	}

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPushPageSize
	}

	offset := 0
	for {
		issues, _, err := db.ListIssues(p.Store, db.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return p.stats, err
		}
		if len(issues) == 0 {
			break
		}
		for _, issue := range issues {
			if err := p.pushIssue(ctx, issue, meta); err != nil {
				return p.stats, issueErr(issue.Key, err)
			}
		}
		offset += len(issues)
		logger.Info("push progress", "processed", offset)
	}

	logger.Info("push complete",
		"issues", p.stats.Issues,
		"created", p.stats.IssuesCreated,
		"skipped", p.stats.IssuesSkipped,
		"attachments", p.stats.AttachmentsUploaded,
		"comments", p.stats.CommentsPosted,
		"edit_failures", p.stats.EditsFailed,
	)
	return p.stats, nil
}

// resolveUsers looks up target accounts for snapshot users that have an
// email but no target account. Only an exact email match is accepted.
func (p *Pusher) resolveUsers(ctx context.Context) error {
	users, err := db.ListUnresolvedUsers(p.Store)
	if err != nil {
		return err
	}

	for _, u := range users {
		candidates, err := p.Target.FindUsers(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", u.Email, err)
		}
		accountID := ""
		for _, c := range candidates {
			if c.EmailAddress == u.Email {
				accountID = c.AccountID
				break
			}
		}
		if accountID == "" {
			p.stats.UsersUnresolved++
			p.logger().Debug("no target account for user", "email", u.Email)
			continue
		}
		if err := db.SetUserTargetAccountID(p.Store, u.ID, accountID); err != nil {
			return err
		}
		p.stats.UsersResolved++
	}
	return nil
}

func (p *Pusher) loadMeta(ctx context.Context) (*targetMeta, error) {
	project, err := p.Target.GetProject(ctx, p.Project)
	if err != nil {
		return nil, err
	}

	types, err := p.Target.CreateMetaIssueTypes(ctx, p.Project)
	if err != nil {
		return nil, err
	}

	fields := make([]json.RawMessage, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency())
	for i, t := range types {
		if t.ID == "" {
			continue
		}
		g.Go(func() error {
			raw, err := p.Target.CreateMetaFields(gctx, p.Project, t.ID)
			if err != nil {
				return err
			}
			fields[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string]issueTypeInfo, len(types))
	for i, t := range types {
		if t.ID == "" {
			continue
		}
		if _, dup := byName[t.Name]; dup {
			continue
		}
		byName[t.Name] = issueTypeInfo{
			meta:       t,
			priorities: mapping.PriorityOptions(fields[i], p.logger().With("issue_type", t.Name)),
		}
	}

	transitions, err := p.Target.GetTransitions(ctx, p.TransitionIssue)
	if err != nil {
		return nil, err
	}

	return &targetMeta{project: project, issueTypes: byName, transitions: transitions}, nil
}

func (p *Pusher) pushIssue(ctx context.Context, issue *model.Issue, meta *targetMeta) error {
	logger := p.logger().With("issue", issue.Key)

	typeName := mapping.TargetIssueType(issue.Type)
	it, ok := meta.issueTypes[typeName]
	if !ok {
		logger.Debug("skipping issue with unsupported type", "type", typeName)
		p.stats.IssuesSkipped++
		return nil
	}
	p.stats.Issues++

	target, outcome, err := p.FindOrCreate(ctx, issue, meta.project.ID, it.meta)
	if err != nil {
		return err
	}
	if outcome == Created {
		p.stats.IssuesCreated++
	} else {
		p.stats.IssuesFound++
	}
	if issue.TargetKey != target.Key {
		if err := db.SetIssueTargetKey(p.Store, issue.ID, target.Key); err != nil {
			return err
		}
		issue.TargetKey = target.Key
	}
	if err := db.RecordActivity(p.Store, issue.ID, db.PipelinePush, outcome.String(), target.Key); err != nil {
		return err
	}

	attachments, err := p.uploadMissingAttachments(ctx, issue, target)
	if err != nil {
		return err
	}
	media := adf.MediaMap(model.MediaMap(attachments))

	if err := p.postMissingComments(ctx, issue, target, media); err != nil {
		return err
	}

	fields := p.EditFields(issue, it.meta, it.priorities, media)
	transition := findTransition(meta.transitions, mapping.TargetStatus(issue.Status))
	if err := p.Target.EditIssue(ctx, target.ID, fields, transition); err != nil {
		p.stats.EditsFailed++
		logger.Error("updating target issue failed", "target", target.Key, "error", err)
		return db.RecordActivity(p.Store, issue.ID, db.PipelinePush, "edit_failed", err.Error())
	}
	return nil
}

// uploadMissingAttachments uploads snapshot attachments whose target id is
// not among the target issue's attachments and records the new target ids.
// It returns the issue's attachments with target ids filled in.
func (p *Pusher) uploadMissingAttachments(ctx context.Context, issue *model.Issue, target *jira.Issue) ([]*model.Attachment, error) {
	logger := p.logger().With("issue", issue.Key)

	onTarget := make(map[string]bool, len(target.Fields.Attachment))
	for _, a := range target.Fields.Attachment {
		onTarget[a.ID] = true
	}

	attachments := make([]*model.Attachment, len(issue.Attachments))
	var missing []*model.Attachment
	for i, a := range issue.Attachments {
		cp := *a
		attachments[i] = &cp
		if a.TargetID != "" && onTarget[a.TargetID] {
			continue
		}
		missing = append(missing, &cp)
	}
	if len(missing) == 0 {
		return attachments, nil
	}

	files := make([]*jira.UploadFile, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency())
	for i, a := range missing {
		g.Go(func() error {
			data, err := p.Blobs.Get(gctx, a.BlobKey)
			if errors.Is(err, blob.ErrNotFound) {
				logger.Warn("attachment blob missing", "attachment", a.SourceID, "blob", a.BlobKey)
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading blob %s: %w", a.BlobKey, err)
			}
			files[i] = &jira.UploadFile{Filename: a.UploadName(), ContentType: a.MimeType, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var upload []jira.UploadFile
	var uploading []*model.Attachment
	for i, f := range files {
		if f == nil {
			continue
		}
		upload = append(upload, *f)
		uploading = append(uploading, missing[i])
	}
	if len(upload) == 0 {
		return attachments, nil
	}

	logger.Info("uploading attachments", "count", len(upload), "target", target.Key)
	created, err := p.Target.UploadAttachments(ctx, target.Key, upload)
	if err != nil {
		return nil, err
	}

	matched := make(map[*model.Attachment]bool, len(uploading))
	for _, c := range created {
		var rec *model.Attachment
		for _, a := range uploading {
			if !matched[a] && a.UploadName() == c.Filename {
				rec = a
				break
			}
		}
		if rec == nil {
			logger.Warn("uploaded attachment matches no snapshot attachment", "filename", c.Filename, "target_attachment", c.ID)
			continue
		}
		matched[rec] = true

		mediaID, ok, err := p.Target.MediaID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn("no media id for uploaded attachment", "target_attachment", c.ID)
		}
		if err := db.SetAttachmentTarget(p.Store, rec.ID, c.ID, mediaID); err != nil {
			return nil, err
		}
		rec.TargetID = c.ID
		rec.TargetMediaID = mediaID
		p.stats.AttachmentsUploaded++
	}
	return attachments, nil
}

// postMissingComments posts every comment without a target id, rewritten
// against media and prefixed with an attribution line.
func (p *Pusher) postMissingComments(ctx context.Context, issue *model.Issue, target *jira.Issue, media adf.MediaMap) error {
	for _, c := range issue.Comments {
		if c.Pushed() {
			continue
		}

		posted, err := p.Target.AddComment(ctx, target.ID, CommentBody(c, media))
		if err != nil {
			return fmt.Errorf("posting comment %s: %w", c.SourceID, err)
		}
		if posted == nil || posted.ID == "" {
			return fmt.Errorf("posting comment %s: target returned no comment id", c.SourceID)
		}
		if err := db.SetCommentTargetID(p.Store, c.ID, posted.ID); err != nil {
			return err
		}
		c.TargetID = posted.ID
		p.stats.CommentsPosted++
	}
	return nil
}

// CommentBody rewrites a snapshot comment for the target and prepends the
// attribution line in subscript.
func CommentBody(c *model.Comment, media adf.MediaMap) *adf.Document {
	return adf.Prepend(
		adf.Rewrite(c.Body, media),
		adf.Paragraph(Attribution(c.Author), adf.Mark{Type: "subsup", Attrs: map[string]any{"type": "sub"}}),
	)
}

// Attribution names the original author of a comment.
func Attribution(author *model.User) string {
	if author == nil {
		return AttributionPrefix
	}
	switch {
	case author.DisplayName != "" && author.Email != "":
		return fmt.Sprintf("%s by %s (%s)", AttributionPrefix, author.DisplayName, author.Email)
	case author.DisplayName != "":
		return fmt.Sprintf("%s by %s", AttributionPrefix, author.DisplayName)
	case author.Email != "":
		return fmt.Sprintf("%s by %s", AttributionPrefix, author.Email)
	default:
		return AttributionPrefix
	}
}

// EditFields builds the field update applied to the target issue.
func (p *Pusher) EditFields(issue *model.Issue, issueType jira.IssueTypeMeta, priorities []jira.AllowedValue, media adf.MediaMap) map[string]any {
	reporter := p.DefaultReporter
	if issue.Reporter != nil && issue.Reporter.TargetAccountID != "" {
		reporter = issue.Reporter.TargetAccountID
	}

	fields := map[string]any{
		"summary":        issue.Summary,
		"issuetype":      map[string]string{"id": issueType.ID},
		"reporter":       map[string]string{"accountId": reporter},
		p.SourceKeyField: issue.Key,
	}
	if prio := mapping.PriorityFor(priorities, issue.Priority); prio != nil {
		fields["priority"] = map[string]string{"id": prio.ID}
	}
	if issue.Description != nil {
		fields["description"] = adf.Rewrite(issue.Description, media)
	}
	return fields
}

func findTransition(transitions []jira.Transition, name string) *jira.Transition {
	for i := range transitions {
		if transitions[i].Name == name {
			return &transitions[i]
		}
	}
	return nil
}

func (p *Pusher) fetchConcurrency() int {
	if p.FetchConcurrency > 0 {
		return p.FetchConcurrency
	}
	return DefaultFetchConcurrency
}

func (p *Pusher) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
