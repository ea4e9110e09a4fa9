package adf

import (
	"fmt"
	"strings"
)

// Markdown renders doc as CommonMark for terminal display. Node types without
// a markdown equivalent render their children; media renders as a
// placeholder naming the media id.
func Markdown(doc *Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	writeBlocks(&b, doc.Content, "")
	return strings.TrimSpace(b.String())
}

// PlainText returns the text content of doc with one line per block.
func PlainText(doc *Document) string {
	if doc == nil {
		return ""
	}
	var lines []string
	for _, n := range doc.Content {
		if line := strings.TrimSpace(inlineText(n.Content, false)); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func writeBlocks(b *strings.Builder, nodes []Node, indent string) {
	for _, n := range nodes {
		writeBlock(b, n, indent)
	}
}

func writeBlock(b *strings.Builder, n Node, indent string) {
	switch n.Type {
	case TypeParagraph:
		fmt.Fprintf(b, "%s%s\n\n", indent, inlineText(n.Content, true))
	case TypeHeading:
		level := intAttr(n.Attrs, "level", 1)
		fmt.Fprintf(b, "%s%s %s\n\n", indent, strings.Repeat("#", level), inlineText(n.Content, true))
	case TypeBulletList, TypeOrderedList:
		for i, item := range n.Content {
			marker := "- "
			if n.Type == TypeOrderedList {
				marker = fmt.Sprintf("%d. ", i+1)
			}
			var inner strings.Builder
			writeBlocks(&inner, item.Content, "")
			lines := strings.Split(strings.TrimSpace(inner.String()), "\n")
			for j, line := range lines {
				if j == 0 {
					fmt.Fprintf(b, "%s%s%s\n", indent, marker, line)
					continue
				}
				if line == "" {
					continue
				}
				fmt.Fprintf(b, "%s%s%s\n", indent, strings.Repeat(" ", len(marker)), line)
			}
		}
		b.WriteString("\n")
	case TypeCodeBlock:
		lang, _ := n.Attrs["language"].(string)
		fmt.Fprintf(b, "%s```%s\n%s\n%s```\n\n", indent, lang, inlineText(n.Content, false), indent)
	case TypeBlockquote:
		var inner strings.Builder
		writeBlocks(&inner, n.Content, "")
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			fmt.Fprintf(b, "%s> %s\n", indent, line)
		}
		b.WriteString("\n")
	case TypeRule:
		fmt.Fprintf(b, "%s---\n\n", indent)
	case TypeMediaSingle, TypeMediaGroup:
		for _, child := range n.Content {
			fmt.Fprintf(b, "%s%s\n", indent, mediaPlaceholder(child))
		}
		b.WriteString("\n")
	case TypeMedia:
		fmt.Fprintf(b, "%s%s\n\n", indent, mediaPlaceholder(n))
	case TypeTable:
		writeTable(b, n, indent)
	default:
		if len(n.Content) > 0 {
			writeBlocks(b, n.Content, indent)
			return
		}
		if n.Text != "" {
			fmt.Fprintf(b, "%s%s\n\n", indent, n.Text)
		}
	}
}

func writeTable(b *strings.Builder, n Node, indent string) {
	for i, row := range n.Content {
		cells := make([]string, 0, len(row.Content))
		for _, cell := range row.Content {
			var inner strings.Builder
			for _, block := range cell.Content {
				inner.WriteString(inlineText(block.Content, true))
				inner.WriteString(" ")
			}
			cells = append(cells, strings.TrimSpace(inner.String()))
		}
		fmt.Fprintf(b, "%s| %s |\n", indent, strings.Join(cells, " | "))
		if i == 0 {
			seps := make([]string, len(cells))
			for j := range seps {
				seps[j] = "---"
			}
			fmt.Fprintf(b, "%s| %s |\n", indent, strings.Join(seps, " | "))
		}
	}
	b.WriteString("\n")
}

func inlineText(nodes []Node, withMarks bool) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case TypeText:
			if withMarks {
				b.WriteString(applyMarks(n.Text, n.Marks))
			} else {
				b.WriteString(n.Text)
			}
		case TypeHardBreak:
			b.WriteString("\n")
		case TypeMention:
			text, _ := n.Attrs["text"].(string)
			if text == "" {
				text, _ = n.Attrs["id"].(string)
			}
			b.WriteString(text)
		case TypeEmoji:
			short, _ := n.Attrs["shortName"].(string)
			b.WriteString(short)
		case TypeInlineCard:
			url, _ := n.Attrs["url"].(string)
			b.WriteString(url)
		case TypeMedia:
			b.WriteString(mediaPlaceholder(n))
		default:
			b.WriteString(inlineText(n.Content, withMarks))
		}
	}
	return b.String()
}

func applyMarks(text string, marks []Mark) string {
	for _, m := range marks {
		switch m.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "_" + text + "_"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			if href, ok := m.Attrs["href"].(string); ok {
				text = "[" + text + "](" + href + ")"
			}
		}
	}
	return text
}

func mediaPlaceholder(n Node) string {
	id, _ := n.Attrs["id"].(string)
	if alt, ok := n.Attrs["alt"].(string); ok && alt != "" {
		return fmt.Sprintf("[attachment: %s]", alt)
	}
	return fmt.Sprintf("[attachment: %s]", id)
}

func intAttr(attrs map[string]any, key string, def int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
