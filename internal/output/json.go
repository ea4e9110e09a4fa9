package output

import (
	"encoding/json"
	"io"
)

// ErrorCode classifies a failed command for scripts reading the envelope.
type ErrorCode string

const (
	ErrGeneral    ErrorCode = "GENERAL_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"
)

// Process exit codes.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitNotFound   = 2
	ExitValidation = 3
)

// ExitCodeForError returns the exit code for code. Unknown codes exit 1.
func ExitCodeForError(code ErrorCode) int {
	switch code {
	case ErrNotFound:
		return ExitNotFound
	case ErrValidation:
		return ExitValidation
	default:
		return ExitGeneral
	}
}

type successEnvelope struct {
	OK       bool     `json:"ok"`
	Data     any      `json:"data"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type errorEnvelope struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error"`
	Code     ErrorCode `json:"code"`
	Warnings []string  `json:"warnings,omitempty"`
}

func encode(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONSuccess(w io.Writer, data any, message string, warnings []string) {
	encode(w, successEnvelope{OK: true, Data: data, Message: message, Warnings: warnings})
}

func writeJSONError(w io.Writer, err error, code ErrorCode, warnings []string) {
	encode(w, errorEnvelope{OK: false, Error: err.Error(), Code: code, Warnings: warnings})
}
