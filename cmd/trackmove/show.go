package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
	"github.com/ALT-F4-LLC/trackmove/internal/render"
)

type showResult struct {
	Issue    *model.Issue     `json:"issue"`
	Activity []model.Activity `json:"activity"`
}

var showCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show a snapshot issue with its comments, attachments and activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		key := strings.ToUpper(strings.TrimSpace(args[0]))
		issue, err := db.GetIssueByKey(conn, key)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("issue %s not found in snapshot", key), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("fetching issue: %w", err), output.ErrGeneral)
		}

		activity, err := db.GetActivity(conn, issue.ID, 10)
		if err != nil {
			return cmdErr(fmt.Errorf("fetching activity: %w", err), output.ErrGeneral)
		}
		if activity == nil {
			activity = []model.Activity{}
		}

		var message string
		if !w.JSONMode {
			message = render.RenderDetail(issue, activity)
		}
		w.Success(showResult{Issue: issue, Activity: activity}, message)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
