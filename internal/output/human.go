package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/trackmove/internal/render"
)

// writeHumanSuccess prints message with a check mark. Multi-line messages
// (tables, detail views) are printed untouched.
func writeHumanSuccess(w io.Writer, message string) {
	switch {
	case message == "":
	case strings.Contains(message, "\n") || !render.ColorsEnabled():
		fmt.Fprintln(w, message)
	default:
		check := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✔")
		fmt.Fprintf(w, "%s %s\n", check, message)
	}
}

func writeHumanError(w io.Writer, err error) {
	if !render.ColorsEnabled() {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	fmt.Fprintf(w, "%s %s %s\n", style.Render("✘"), style.Render("Error:"), err)
}
