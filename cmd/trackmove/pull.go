package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/migrate"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Copy source issues, comments and attachments into the snapshot",
	Long: `Pull pages through the source search and stores every issue, its users,
comments and attachments in the local snapshot. Attachment bytes go to object
storage. Running pull again refreshes issues and skips stored attachments.`,
	Annotations: map[string]string{
		annotationRequires: "source,blob",
		annotationCreateDB: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		jql, _ := cmd.Flags().GetString("jql")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if jql == "" {
			jql = cfg.Migration.SourceJQL
		}
		if pageSize < 0 || concurrency < 0 {
			return cmdErr(fmt.Errorf("--page-size and --concurrency must not be negative"), output.ErrValidation)
		}

		source, err := jiraClient(cfg.Source)
		if err != nil {
			return cmdErr(fmt.Errorf("source jira: %w", err), output.ErrValidation)
		}
		blobs, err := openBlobs(cmd)
		if err != nil {
			return err
		}

		p := &migrate.Puller{
			Source:           source,
			Store:            getDB(cmd),
			Blobs:            blobs,
			JQL:              jql,
			PageSize:         pageSize,
			FetchConcurrency: concurrency,
			Logger:           getLogger(cmd).With("pipeline", "pull"),
		}

		w.Info("Pulling %q into %s", jql, cfg.DBPath)
		stats, err := p.Run(cmd.Context())
		if err != nil {
			return cmdErr(fmt.Errorf("pull failed after %d issues: %w", stats.Issues, err), output.ErrGeneral)
		}

		warnPullStats(w, stats)
		w.Success(stats, fmt.Sprintf("Pulled %d issues: %d comments, %d attachments stored (%s), %d already stored",
			stats.Issues,
			stats.Comments,
			stats.AttachmentsStored,
			humanize.Bytes(uint64(stats.BytesStored)),
			stats.AttachmentsSkipped,
		))
		return nil
	},
}

// warnPullStats must run before Success so JSON mode carries the warning.
func warnPullStats(w *output.Writer, stats *migrate.PullStats) {
	if stats.AttachmentsNoMime > 0 {
		w.Warn("%d attachments had no mime type and were skipped", stats.AttachmentsNoMime)
	}
}

func init() {
	pullCmd.Flags().String("jql", "", "Source search query (default SOURCE_JQL)")
	pullCmd.Flags().Int("page-size", 0, "Issues per search page (0 lets the server choose)")
	pullCmd.Flags().Int("concurrency", migrate.DefaultFetchConcurrency, "Concurrent attachment transfers per issue")
	rootCmd.AddCommand(pullCmd)
}
