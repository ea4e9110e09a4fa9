package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every issue, comment, attachment and user from the snapshot",
	Long: `Reset clears the snapshot store so the next pull starts from scratch.
Objects already written to object storage are left in place, and the target
site is not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes && !w.JSONMode {
			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title("This will delete ALL snapshot data, including which issues were already pushed. Continue?").
						Affirmative("Yes, clear the snapshot").
						Negative("Cancel").
						Value(&confirmed),
				),
			)

			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}

			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		counts, err := db.GetCounts(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("counting snapshot: %w", err), output.ErrGeneral)
		}
		if err := db.ClearAllData(conn); err != nil {
			return cmdErr(fmt.Errorf("clearing snapshot: %w", err), output.ErrGeneral)
		}
		getLogger(cmd).Info("snapshot cleared", "issues", counts.Issues, "comments", counts.Comments, "attachments", counts.Attachments)

		w.Success(struct {
			Cleared *db.Counts `json:"cleared"`
		}{Cleared: counts}, fmt.Sprintf("Cleared %d issues, %d comments, %d attachments and %d users",
			counts.Issues, counts.Comments, counts.Attachments, counts.Users))
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
