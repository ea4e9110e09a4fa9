// Package output writes command results either as a JSON envelope on stdout
// or as styled text for a terminal.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/trackmove/internal/render"
)

// Writer renders one command's result. A Writer is not safe for concurrent
// use; pipelines log through slog and only the command goroutine writes here.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer

	// warnings collected in JSON mode, flushed into the next envelope.
	warnings []string
}

// New returns a Writer on os.Stdout and os.Stderr.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success writes data as a success envelope in JSON mode, or message to
// Stdout otherwise. Warnings recorded before the call are included in the
// envelope.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message, w.takeWarnings())
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error writes err as an error envelope in JSON mode, or to Stderr otherwise,
// and returns the exit code for code.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code, w.takeWarnings())
	} else {
		writeHumanError(w.Stderr, err)
	}
	return ExitCodeForError(code)
}

// Info writes a dim progress note to Stderr. It is silent in quiet and JSON
// modes.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !render.ColorsEnabled() {
		fmt.Fprintln(w.Stderr, msg)
		return
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fmt.Fprintf(w.Stderr, "%s %s\n", dim.Render("ℹ"), dim.Render(msg))
}

// Warn reports a condition the user should act on, such as unresolved users
// or failed edits. Human mode prints it to Stderr even when quiet; JSON mode
// holds it for the next envelope.
func (w *Writer) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.JSONMode {
		w.warnings = append(w.warnings, msg)
		return
	}
	if !render.ColorsEnabled() {
		fmt.Fprintf(w.Stderr, "Warning: %s\n", msg)
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	fmt.Fprintf(w.Stderr, "%s %s %s\n", style.Render("⚠"), style.Render("Warning:"), msg)
}

func (w *Writer) takeWarnings() []string {
	warnings := w.warnings
	w.warnings = nil
	return warnings
}
