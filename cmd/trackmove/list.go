package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
	"github.com/ALT-F4-LLC/trackmove/internal/render"
)

type listResult struct {
	Issues []*model.Issue `json:"issues"`
	Total  int            `json:"total"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List snapshot issues",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		statuses, _ := cmd.Flags().GetStringSlice("status")
		types, _ := cmd.Flags().GetStringSlice("type")
		treeMode, _ := cmd.Flags().GetBool("tree")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		for i, s := range statuses {
			statuses[i] = strings.ToUpper(s)
			if err := model.ValidateStatus(model.SourceStatus(statuses[i])); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		for i, t := range types {
			types[i] = strings.ToUpper(t)
			if err := model.ValidateIssueType(model.SourceIssueType(types[i])); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		if limit < 0 || offset < 0 {
			return cmdErr(fmt.Errorf("--limit and --offset must not be negative"), output.ErrValidation)
		}

		issues, total, err := db.ListIssues(conn, db.ListOptions{
			Statuses: statuses,
			Types:    types,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("listing issues: %w", err), output.ErrGeneral)
		}

		result := listResult{Issues: issues, Total: total}

		var message string
		if !w.JSONMode {
			message = render.RenderTable(issues, treeMode)
			if len(issues) > 0 && offset+len(issues) < total {
				message += fmt.Sprintf("\nShowing %d-%d of %d", offset+1, offset+len(issues), total)
			}
		}
		w.Success(result, message)

		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceP("status", "s", nil, "Filter by source status (repeatable)")
	listCmd.Flags().StringSliceP("type", "T", nil, "Filter by source issue type (repeatable)")
	listCmd.Flags().Bool("tree", false, "Nest sub-tasks under their parents")
	listCmd.Flags().Int("limit", 50, "Maximum number of results (0 for all)")
	listCmd.Flags().Int("offset", 0, "Skip this many issues")
	rootCmd.AddCommand(listCmd)
}
