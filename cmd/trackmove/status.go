package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
	"github.com/ALT-F4-LLC/trackmove/internal/render"
)

type statusResult struct {
	Path          string `json:"path"`
	SchemaVersion int    `json:"schema_version"`
	*db.Counts
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot counts and push progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		counts, err := db.GetCounts(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("counting snapshot: %w", err), output.ErrGeneral)
		}
		version, err := db.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		result := statusResult{Path: getCfg(cmd).DBPath, SchemaVersion: version, Counts: counts}

		var message string
		if !w.JSONMode {
			message = renderStatus(result)
		}
		w.Success(result, message)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type progressLine struct {
	label  string
	done   int
	total  int
	suffix string
}

func progressLines(s statusResult) []progressLine {
	return []progressLine{
		{label: "Issues:", done: s.IssuesPushed, total: s.Issues},
		{label: "Comments:", done: s.CommentsPushed, total: s.Comments},
		{label: "Attachments:", done: s.AttachmentsPushed, total: s.Attachments, suffix: humanize.Bytes(uint64(s.AttachmentBytes))},
		{label: "Users:", done: s.UsersResolved, total: s.Users},
	}
}

func (p progressLine) text() string {
	text := fmt.Sprintf("%d/%d", p.done, p.total)
	if p.suffix != "" {
		text += " (" + p.suffix + ")"
	}
	return text
}

// renderStatus renders the status result as a styled human-readable string.
func renderStatus(s statusResult) string {
	if !render.ColorsEnabled() {
		return renderPlainStatus(s)
	}

	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Bold(true)
	doneStyle := lipgloss.NewStyle().Bold(true).Foreground(render.ColorFromName("green"))

	lines := []string{
		sectionStyle.Render("Snapshot"),
		fmt.Sprintf("  %s %s", labelStyle.Render("Path:"), s.Path),
		fmt.Sprintf("  %s %s", labelStyle.Render("Schema:"), valueStyle.Render(fmt.Sprintf("v%d", s.SchemaVersion))),
		"",
		sectionStyle.Render("Pushed / Total"),
	}
	for _, p := range progressLines(s) {
		style := valueStyle
		if p.total > 0 && p.done == p.total {
			style = doneStyle
		}
		lines = append(lines, fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-13s", p.label)), style.Render(p.text())))
	}

	lines = append(lines, "", sectionStyle.Render("By Status"))
	for _, status := range model.Statuses {
		count := s.ByStatus[string(status)]
		if count == 0 {
			continue
		}
		countStyle := lipgloss.NewStyle().Bold(true).Foreground(render.ColorFromName(status.Color()))
		lines = append(lines,
			fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-16s", string(status)+":")), countStyle.Render(fmt.Sprintf("%d", count))),
		)
	}

	return strings.Join(lines, "\n")
}

// renderPlainStatus renders the status result as plain text without styling.
func renderPlainStatus(s statusResult) string {
	var b strings.Builder

	b.WriteString("Snapshot\n")
	fmt.Fprintf(&b, "  Path:   %s\n", s.Path)
	fmt.Fprintf(&b, "  Schema: v%d\n", s.SchemaVersion)

	b.WriteString("\nPushed / Total\n")
	for _, p := range progressLines(s) {
		fmt.Fprintf(&b, "  %-13s %s\n", p.label, p.text())
	}

	b.WriteString("\nBy Status\n")
	for _, status := range model.Statuses {
		if count := s.ByStatus[string(status)]; count > 0 {
			fmt.Fprintf(&b, "  %-16s %d\n", string(status)+":", count)
		}
	}

	return b.String()
}
