// Package adf models Atlassian Document Format trees, the rich-text format
// Jira Cloud uses for descriptions and comment bodies.
package adf

import (
	"encoding/json"
	"maps"
)

// Version is the only ADF document version Jira accepts.
const Version = 1

// Node types this package treats specially. Every other type is carried
// through opaquely.
const (
	TypeDoc         = "doc"
	TypeParagraph   = "paragraph"
	TypeText        = "text"
	TypeMedia       = "media"
	TypeMediaSingle = "mediaSingle"
	TypeMediaGroup  = "mediaGroup"
	TypeHeading     = "heading"
	TypeBulletList  = "bulletList"
	TypeOrderedList = "orderedList"
	TypeListItem    = "listItem"
	TypeCodeBlock   = "codeBlock"
	TypeBlockquote  = "blockquote"
	TypeRule        = "rule"
	TypeHardBreak   = "hardBreak"
	TypeMention     = "mention"
	TypeEmoji       = "emoji"
	TypeInlineCard  = "inlineCard"
	TypePanel       = "panel"
	TypeTable       = "table"
	TypeTableRow    = "tableRow"
	TypeTableHeader = "tableHeader"
	TypeTableCell   = "tableCell"
)

// Document is the root of an ADF tree.
type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a single ADF node. The Type tag decides which of the other fields
// are meaningful.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// New returns an empty document.
func New(content ...Node) *Document {
	if content == nil {
		content = []Node{}
	}
	return &Document{Type: TypeDoc, Version: Version, Content: content}
}

// Parse decodes a raw ADF document. Empty input and JSON null yield nil.
func Parse(raw []byte) (*Document, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Paragraph builds a paragraph holding a single text node.
func Paragraph(text string, marks ...Mark) Node {
	return Node{
		Type:    TypeParagraph,
		Content: []Node{{Type: TypeText, Text: text, Marks: marks}},
	}
}

// Prepend returns a copy of doc with nodes inserted before its content.
func Prepend(doc *Document, nodes ...Node) *Document {
	out := New()
	if doc != nil {
		out.Content = make([]Node, 0, len(nodes)+len(doc.Content))
		out.Content = append(out.Content, nodes...)
		out.Content = append(out.Content, doc.Content...)
		return out
	}
	out.Content = append(out.Content, nodes...)
	return out
}

func cloneMarks(marks []Mark) []Mark {
	if marks == nil {
		return nil
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = Mark{Type: m.Type, Attrs: maps.Clone(m.Attrs)}
	}
	return out
}
