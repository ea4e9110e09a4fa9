package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/ALT-F4-LLC/trackmove/internal/blob"
	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// DefaultFetchConcurrency bounds concurrent attachment transfers within one
// issue.
const DefaultFetchConcurrency = 4

// Puller copies source issues into the snapshot store.
type Puller struct {
	Source Source
	Store  *sql.DB
	Blobs  blob.Store
	JQL    string

	// PageSize is passed as maxResults; zero lets the server choose.
	PageSize int

	// FetchConcurrency bounds concurrent attachment transfers per issue.
	FetchConcurrency int

	Logger *slog.Logger
}

// Run pages through the source search until no continuation token is
// returned. The first error ends the run.
func (p *Puller) Run(ctx context.Context) (*PullStats, error) {
	logger := p.logger()
	stats := &PullStats{}

	token := ""
	for {
		logger.Info("pull progress", "processed", stats.Issues)

		page, err := p.Source.SearchJQL(ctx, jira.SearchRequest{
			JQL:           p.JQL,
			Fields:        SourceFields,
			MaxResults:    p.PageSize,
			NextPageToken: token,
			Expand:        "renderedFields",
		})
		if err != nil {
			return stats, err
		}
		stats.Pages++

		for i := range page.Issues {
			if err := p.pullIssue(ctx, &page.Issues[i], stats); err != nil {
				return stats, issueErr(page.Issues[i].Key, err)
			}
			stats.Issues++
		}

		if page.IsLast || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	logger.Info("pull complete",
		"issues", stats.Issues,
		"comments", stats.Comments,
		"attachments_stored", stats.AttachmentsStored,
		"attachments_skipped", stats.AttachmentsSkipped,
		"bytes", humanize.Bytes(uint64(stats.BytesStored)),
	)
	return stats, nil
}

func (p *Puller) pullIssue(ctx context.Context, src *jira.Issue, stats *PullStats) error {
	issue, err := SnapshotIssue(src)
	if err != nil {
		return err
	}
	if _, err := db.UpsertIssue(p.Store, issue); err != nil {
		return err
	}
	for _, c := range issue.Comments {
		if c.SourceID != "" {
			stats.Comments++
		}
	}

	return p.pullAttachments(ctx, issue, src.Fields.Attachment, stats)
}

type fetched struct {
	source  jira.Attachment
	key     string
	size    int64
	mediaID string
}

func (p *Puller) pullAttachments(ctx context.Context, issue *model.Issue, attachments []jira.Attachment, stats *PullStats) error {
	logger := p.logger()

	existing, err := db.ListAttachments(p.Store, issue.ID)
	if err != nil {
		return err
	}

	var pending []jira.Attachment
	for _, a := range attachments {
		if a.MimeType == "" {
			stats.AttachmentsNoMime++
			continue
		}
		if alreadyStored(existing, a) {
			stats.AttachmentsSkipped++
			continue
		}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		return nil
	}

	results := make([]fetched, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency())
	for i, a := range pending {
		g.Go(func() error {
			logger.Debug("fetching attachment", "issue", issue.Key, "attachment", a.ID, "filename", a.Filename)
			body, err := p.Source.AttachmentContent(gctx, a.ID)
			if err != nil {
				return err
			}
			key, err := p.Blobs.Put(gctx, body, a.MimeType)
			if err != nil {
				return fmt.Errorf("storing attachment %s: %w", a.ID, err)
			}
			mediaID, ok, err := p.Source.MediaID(gctx, a.ID)
			if err != nil {
				return err
			}
			if !ok {
				logger.Warn("no media id for attachment", "issue", issue.Key, "attachment", a.ID)
			}
			results[i] = fetched{source: a, key: key, size: int64(len(body)), mediaID: mediaID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		rec := &model.Attachment{
			IssueID:       issue.ID,
			SourceID:      r.source.ID,
			Filename:      r.source.Filename,
			MimeType:      r.source.MimeType,
			Size:          r.size,
			BlobKey:       r.key,
			SourceMediaID: r.mediaID,
		}
		if _, err := db.CreateAttachment(p.Store, rec); err != nil {
			return err
		}
		stats.AttachmentsStored++
		stats.BytesStored += r.size
		logger.Info("stored attachment",
			"issue", issue.Key,
			"attachment", r.source.ID,
			"filename", r.source.Filename,
			"size", humanize.Bytes(uint64(r.size)),
		)
	}
	return nil
}

// alreadyStored reports whether a snapshot attachment matches a by source id
// or by filename.
func alreadyStored(existing []*model.Attachment, a jira.Attachment) bool {
	for _, e := range existing {
		if e.SourceID == a.ID {
			return true
		}
		if a.Filename != "" && e.Filename == a.Filename {
			return true
		}
	}
	return false
}

func (p *Puller) fetchConcurrency() int {
	if p.FetchConcurrency > 0 {
		return p.FetchConcurrency
	}
	return DefaultFetchConcurrency
}

func (p *Puller) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
