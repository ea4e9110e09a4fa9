package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
)

// Wrap widths for rendered ADF bodies. Comments sit indented under their
// header so they wrap a little earlier.
const (
	descriptionWidth = 80
	commentWidth     = 76
)

// ColorsEnabled reports whether styled output is allowed. NO_COLOR (any
// value) and TERM=dumb turn it off.
func ColorsEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// RenderDocument converts doc to markdown and, when colors are enabled,
// renders it through glamour wrapped at width. Rendering errors fall back to
// the raw markdown.
func RenderDocument(doc *adf.Document, width int) string {
	md := adf.Markdown(doc)
	if md == "" || !ColorsEnabled() {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
