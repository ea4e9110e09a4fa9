package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/migrate"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Replay the snapshot onto the target project",
	Long: `Push resolves snapshot users on the target by email, then finds or creates
a target issue for every snapshot issue, uploads missing attachments, posts
missing comments and updates fields and status. Running push again only sends
what the target is missing.`,
	Annotations: map[string]string{annotationRequires: "target,blob"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		pageSize, _ := cmd.Flags().GetInt("page-size")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if pageSize < 0 || concurrency < 0 {
			return cmdErr(fmt.Errorf("--page-size and --concurrency must not be negative"), output.ErrValidation)
		}

		target, err := jiraClient(cfg.Target)
		if err != nil {
			return cmdErr(fmt.Errorf("target jira: %w", err), output.ErrValidation)
		}
		blobs, err := openBlobs(cmd)
		if err != nil {
			return err
		}

		p := &migrate.Pusher{
			Target:           target,
			Store:            getDB(cmd),
			Blobs:            blobs,
			Project:          cfg.Migration.TargetProject,
			SourceKeyField:   cfg.Migration.SourceKeyField,
			DefaultReporter:  cfg.Migration.DefaultReporter,
			TransitionIssue:  cfg.Migration.TransitionIssue,
			PageSize:         pageSize,
			FetchConcurrency: concurrency,
			Logger:           getLogger(cmd).With("pipeline", "push"),
		}

		w.Info("Pushing %s to project %s", cfg.DBPath, cfg.Migration.TargetProject)
		stats, err := p.Run(cmd.Context())
		if err != nil {
			if errors.Is(err, migrate.ErrCreateUnconfirmed) {
				w.Warn("a created issue never became searchable; re-run push to reconcile it")
			}
			return cmdErr(fmt.Errorf("push failed after %d issues: %w", stats.Issues, err), output.ErrGeneral)
		}

		warnPushStats(w, stats)
		w.Success(stats, fmt.Sprintf("Pushed %d issues (%d created, %d found, %d skipped): %d attachments, %d comments",
			stats.Issues,
			stats.IssuesCreated,
			stats.IssuesFound,
			stats.IssuesSkipped,
			stats.AttachmentsUploaded,
			stats.CommentsPosted,
		))
		return nil
	},
}

// warnPushStats raises the conditions of a finished push that need attention.
// It must run before Success so JSON mode carries them in the envelope.
func warnPushStats(w *output.Writer, stats *migrate.PushStats) {
	if stats.DuplicatesDeleted > 0 {
		w.Warn("deleted %d duplicate target issues", stats.DuplicatesDeleted)
	}
	if stats.UsersUnresolved > 0 {
		w.Warn("%d users have no target account; their issues use the default reporter", stats.UsersUnresolved)
	}
	if stats.EditsFailed > 0 {
		w.Warn("%d issue updates failed; see the log for details", stats.EditsFailed)
	}
}

func init() {
	pushCmd.Flags().Int("page-size", migrate.DefaultPushPageSize, "Snapshot issues read per page")
	pushCmd.Flags().Int("concurrency", migrate.DefaultFetchConcurrency, "Concurrent blob downloads per issue")
	rootCmd.AddCommand(pushCmd)
}
