package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

const maxSummaryWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "magenta":
		return lipgloss.Color("13")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func priorityLabel(p model.SourcePriority) string {
	return fmt.Sprintf("%s %s", p.Emoji(), string(p))
}

// targetLabel is the target key of a pushed issue or a dash.
func targetLabel(issue *model.Issue) string {
	if issue.TargetKey == "" {
		return "-"
	}
	return issue.TargetKey
}

func userLabel(u *model.User) string {
	switch {
	case u == nil:
		return ""
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.AccountID
	}
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderTable renders snapshot issues as a formatted table.
// If treeMode is true, sub-tasks are nested under their parents instead.
func RenderTable(issues []*model.Issue, treeMode bool) string {
	if len(issues) == 0 {
		return EmptyState("No issues in the snapshot.", "Fill it with: trackmove pull", false)
	}

	if treeMode {
		return RenderTreeList(issues)
	}

	if !ColorsEnabled() {
		return renderPlainTable(issues)
	}

	headers := []string{"Key", "Status", "Priority", "Type", "Summary", "Reporter", "Target", "Created"}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue))
	}

	statusColors := make([]string, len(issues))
	for i, issue := range issues {
		statusColors[i] = issue.Status.Color()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			if row < 0 || row >= len(statusColors) {
				return s
			}

			switch col {
			case 0: // Key
				return s.Foreground(lipgloss.Color("15"))
			case 1: // Status
				return s.Foreground(ColorFromName(statusColors[row]))
			case 4: // Summary
				return s.Bold(true)
			case 6: // Target
				if rows[row][6] == "-" {
					return s.Foreground(lipgloss.Color("8"))
				}
				return s.Foreground(ColorFromName("green"))
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue *model.Issue) []string {
	return []string{
		issue.Key,
		string(issue.Status),
		priorityLabel(issue.Priority),
		string(issue.Type),
		truncate(issue.Summary, maxSummaryWidth),
		userLabel(issue.Reporter),
		targetLabel(issue),
		humanize.Time(issue.CreatedAt),
	}
}

func renderPlainTable(issues []*model.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s %-16s %-14s %-10s %-40s %-20s %-12s %s\n",
		"Key", "Status", "Priority", "Type", "Summary", "Reporter", "Target", "Created")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 140))

	for _, issue := range issues {
		fmt.Fprintf(&b, "%-12s %-16s %-14s %-10s %-40s %-20s %-12s %s\n",
			issue.Key,
			string(issue.Status),
			priorityLabel(issue.Priority),
			string(issue.Type),
			truncate(issue.Summary, maxSummaryWidth),
			userLabel(issue.Reporter),
			targetLabel(issue),
			humanize.Time(issue.CreatedAt),
		)
	}

	return b.String()
}

// splitByParent groups issues under their parent key. Issues whose parent is
// not in the set are roots.
func splitByParent(issues []*model.Issue) ([]*model.Issue, map[string][]*model.Issue) {
	present := make(map[string]bool, len(issues))
	for _, issue := range issues {
		present[issue.Key] = true
	}

	children := make(map[string][]*model.Issue)
	var roots []*model.Issue
	for _, issue := range issues {
		if issue.ParentKey != "" && present[issue.ParentKey] {
			children[issue.ParentKey] = append(children[issue.ParentKey], issue)
			continue
		}
		roots = append(roots, issue)
	}
	return roots, children
}

// RenderTreeList renders issues as an indented hierarchy using tree lines.
func RenderTreeList(issues []*model.Issue) string {
	if len(issues) == 0 {
		return EmptyState("No issues in the snapshot.", "Fill it with: trackmove pull", false)
	}

	roots, children := splitByParent(issues)

	if !ColorsEnabled() {
		var b strings.Builder
		for _, root := range roots {
			renderPlainTreeNode(&b, root, children, 0)
		}
		return b.String()
	}

	t := tree.New().Root("Issues")
	for _, root := range roots {
		node := tree.Root(formatTreeNode(root))
		addTreeChildren(node, root.Key, children)
		t.Child(node)
	}
	return t.String()
}

func formatTreeNode(issue *model.Issue) string {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	statusStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Status.Color()))
	summaryStyle := lipgloss.NewStyle().Bold(true)

	return fmt.Sprintf("%s %s %s %s",
		keyStyle.Render(issue.Key),
		statusStyle.Render(string(issue.Status)),
		issue.Priority.Emoji(),
		summaryStyle.Render(truncate(issue.Summary, maxSummaryWidth)),
	)
}

func addTreeChildren(node *tree.Tree, parentKey string, children map[string][]*model.Issue) {
	for _, child := range children[parentKey] {
		childNode := tree.Root(formatTreeNode(child))
		addTreeChildren(childNode, child.Key, children)
		node.Child(childNode)
	}
}

func renderPlainTreeNode(b *strings.Builder, issue *model.Issue, children map[string][]*model.Issue, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s %s %s %s\n",
		indent,
		issue.Key,
		string(issue.Status),
		issue.Priority.Emoji(),
		truncate(issue.Summary, maxSummaryWidth),
	)
	for _, child := range children[issue.Key] {
		renderPlainTreeNode(b, child, children, depth+1)
	}
}
