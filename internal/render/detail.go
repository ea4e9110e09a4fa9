package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// RenderDetail renders a full snapshot issue view including metadata,
// description, attachments, comments, and recent pipeline activity.
func RenderDetail(issue *model.Issue, activity []model.Activity) string {
	if !ColorsEnabled() {
		return renderPlainDetail(issue, activity)
	}

	sections := []string{renderHeader(issue), renderMetadata(issue)}

	if issue.Description != nil {
		sections = append(sections, renderDescription(issue.Description))
	}
	if len(issue.Attachments) > 0 {
		sections = append(sections, renderAttachments(issue.Attachments))
	}
	if len(issue.Comments) > 0 {
		sections = append(sections, renderComments(issue.Comments))
	}
	if len(activity) > 0 {
		sections = append(sections, renderActivity(activity))
	}

	return strings.Join(sections, "\n\n")
}

func renderHeader(issue *model.Issue) string {
	keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	summaryStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Status.Color())).
		Bold(true)

	return fmt.Sprintf("%s  %s\n%s  %s",
		keyStyle.Render(issue.Key),
		summaryStyle.Render(issue.Summary),
		statusStyle.Render(string(issue.Status)),
		priorityLabel(issue.Priority),
	)
}

func metadataLines(issue *model.Issue) [][2]string {
	lines := [][2]string{{"Type:", string(issue.Type)}}
	if r := userLabel(issue.Reporter); r != "" {
		lines = append(lines, [2]string{"Reporter:", r})
	}
	if a := userLabel(issue.Assignee); a != "" {
		lines = append(lines, [2]string{"Assignee:", a})
	}
	if issue.ParentKey != "" {
		lines = append(lines, [2]string{"Parent:", issue.ParentKey})
	}
	lines = append(lines, [2]string{"Target:", targetLabel(issue)})
	if !issue.CreatedAt.IsZero() {
		lines = append(lines, [2]string{"Created:", humanize.Time(issue.CreatedAt)})
	}
	return lines
}

func renderMetadata(issue *model.Issue) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string
	for _, l := range metadataLines(issue) {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(l[0]), l[1]))
	}
	return strings.Join(lines, "\n")
}

func renderDescription(doc *adf.Document) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	return sectionStyle.Render("Description") + "\n" + RenderDocument(doc, descriptionWidth)
}

func attachmentLine(a *model.Attachment) string {
	state := "pending"
	if a.Pushed() {
		state = "pushed " + a.TargetID
	}
	return fmt.Sprintf("%s (%s, %s) %s", a.UploadName(), a.MimeType, humanize.Bytes(uint64(max(a.Size, 0))), state)
}

func renderAttachments(attachments []*model.Attachment) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	lines := []string{sectionStyle.Render(fmt.Sprintf("Attachments (%d)", len(attachments)))}
	for _, a := range attachments {
		lines = append(lines, "  "+dimStyle.Render("▸ "+attachmentLine(a)))
	}
	return strings.Join(lines, "\n")
}

func commentState(c *model.Comment) string {
	if c.Pushed() {
		return "pushed " + c.TargetID
	}
	return "pending"
}

func renderComments(comments []*model.Comment) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := sectionStyle.Render("Comments")

	var parts []string
	for _, c := range comments {
		commentHeader := fmt.Sprintf("%s  %s",
			authorStyle.Render(c.AuthorOrAnonymous()),
			stateStyle.Render(commentState(c)),
		)
		parts = append(parts, commentHeader+"\n"+RenderDocument(c.Body, commentWidth))
	}

	return header + "\n" + strings.Join(parts, "\n\n")
}

// activityIcon returns a semantic icon for an activity entry.
func activityIcon(a model.Activity) string {
	switch a.Event {
	case "created":
		return "✨" // ✨
	case "edit_failed":
		return "✘" // ✘
	default:
		return "✎" // ✎
	}
}

func activityText(a model.Activity) string {
	text := fmt.Sprintf("%s %s", a.Pipeline, a.Event)
	if a.Detail != "" {
		text += ": " + a.Detail
	}
	return text
}

func renderActivity(activity []model.Activity) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	lines := []string{sectionStyle.Render("Activity")}
	for _, a := range activity {
		lines = append(lines, fmt.Sprintf("  %s %s  %s",
			activityIcon(a),
			activityText(a),
			timeStyle.Render(humanize.Time(a.CreatedAt)),
		))
	}
	return strings.Join(lines, "\n")
}

// renderPlainDetail renders a detail view without any color or styling.
func renderPlainDetail(issue *model.Issue, activity []model.Activity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", issue.Key, issue.Summary)
	fmt.Fprintf(&b, "%s  %s\n", string(issue.Status), priorityLabel(issue.Priority))

	b.WriteString("\n")
	for _, l := range metadataLines(issue) {
		fmt.Fprintf(&b, "%s %s\n", l[0], l[1])
	}

	if issue.Description != nil {
		fmt.Fprintf(&b, "\nDescription\n%s\n", adf.Markdown(issue.Description))
	}

	if len(issue.Attachments) > 0 {
		fmt.Fprintf(&b, "\nAttachments (%d)\n", len(issue.Attachments))
		for _, a := range issue.Attachments {
			fmt.Fprintf(&b, "  > %s\n", attachmentLine(a))
		}
	}

	if len(issue.Comments) > 0 {
		b.WriteString("\nComments\n")
		for _, c := range issue.Comments {
			fmt.Fprintf(&b, "  %s  %s\n  %s\n\n", c.AuthorOrAnonymous(), commentState(c), adf.PlainText(c.Body))
		}
	}

	if len(activity) > 0 {
		b.WriteString("\nActivity\n")
		for _, a := range activity {
			fmt.Fprintf(&b, "  %s %s  %s\n", activityIcon(a), activityText(a), humanize.Time(a.CreatedAt))
		}
	}

	return b.String()
}
