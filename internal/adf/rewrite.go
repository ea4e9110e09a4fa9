package adf

import (
	"maps"
	"slices"
)

// DefaultLayout is applied to mediaSingle nodes without a recognized layout.
const DefaultLayout = "align-start"

var layouts = []string{
	"align-start",
	"align-end",
	"center",
	"wide",
	"full-width",
	"wrap-left",
	"wrap-right",
}

// MediaMap maps media identifiers embedded in source documents to the
// identifiers of the same files on the target.
type MediaMap map[string]string

// Rewrite returns a copy of doc whose media references point at target media.
//
// mediaSingle wrappers keep only their layout. media nodes whose id is in m
// are replaced by a minimal file reference to the mapped id; media nodes with
// an unknown or missing id are dropped from their parent. All other nodes are
// copied with their children rewritten. The result is always a version 1 doc
// and doc itself is never modified.
func Rewrite(doc *Document, m MediaMap) *Document {
	out := New()
	if doc == nil {
		return out
	}
	if content := rewriteNodes(doc.Content, m); content != nil {
		out.Content = content
	}
	return out
}

func rewriteNodes(nodes []Node, m MediaMap) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if rewritten, keep := rewriteNode(n, m); keep {
			out = append(out, rewritten)
		}
	}
	return out
}

func rewriteNode(n Node, m MediaMap) (Node, bool) {
	switch n.Type {
	case TypeMediaSingle:
		return Node{
			Type:    TypeMediaSingle,
			Attrs:   map[string]any{"layout": layoutOf(n)},
			Content: rewriteNodes(n.Content, m),
		}, true

	case TypeMedia:
		id, _ := n.Attrs["id"].(string)
		target, ok := m[id]
		if id == "" || !ok || target == "" {
			return Node{}, false
		}
		return Node{
			Type: TypeMedia,
			Attrs: map[string]any{
				"type":       "file",
				"collection": "",
				"id":         target,
			},
		}, true

	default:
		return Node{
			Type:    n.Type,
			Attrs:   maps.Clone(n.Attrs),
			Content: rewriteNodes(n.Content, m),
			Text:    n.Text,
			Marks:   cloneMarks(n.Marks),
		}, true
	}
}

func layoutOf(n Node) string {
	layout, _ := n.Attrs["layout"].(string)
	if slices.Contains(layouts, layout) {
		return layout
	}
	return DefaultLayout
}
