package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ALT-F4-LLC/trackmove/internal/migrate"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
)

type envelope struct {
	OK       bool           `json:"ok"`
	Data     map[string]any `json:"data"`
	Warnings []string       `json:"warnings"`
}

func decodeEnvelope(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return env
}

func TestPushWarningsReachJSONEnvelope(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := &output.Writer{JSONMode: true, Stdout: &stdout, Stderr: &stderr}
	stats := &migrate.PushStats{Issues: 5, DuplicatesDeleted: 1, UsersUnresolved: 3, EditsFailed: 2}

	warnPushStats(w, stats)
	w.Success(stats, "Pushed 5 issues")

	env := decodeEnvelope(t, stdout.Bytes())
	want := []string{
		"deleted 1 duplicate target issues",
		"3 users have no target account; their issues use the default reporter",
		"2 issue updates failed; see the log for details",
	}
	if len(env.Warnings) != len(want) {
		t.Fatalf("warnings = %q, want %q", env.Warnings, want)
	}
	for i := range want {
		if env.Warnings[i] != want[i] {
			t.Errorf("warnings[%d] = %q, want %q", i, env.Warnings[i], want[i])
		}
	}
	if env.Data["edits_failed"] != 2.0 {
		t.Errorf("data.edits_failed = %v, want 2", env.Data["edits_failed"])
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty in JSON mode", stderr.String())
	}
}

func TestCleanPushHasNoWarnings(t *testing.T) {
	var stdout bytes.Buffer
	w := &output.Writer{JSONMode: true, Stdout: &stdout}

	warnPushStats(w, &migrate.PushStats{Issues: 2, IssuesCreated: 2})
	w.Success(nil, "Pushed 2 issues")

	if env := decodeEnvelope(t, stdout.Bytes()); len(env.Warnings) != 0 {
		t.Errorf("warnings = %q, want none", env.Warnings)
	}
}

func TestPullWarningReachesJSONEnvelope(t *testing.T) {
	var stdout bytes.Buffer
	w := &output.Writer{JSONMode: true, Stdout: &stdout}

	warnPullStats(w, &migrate.PullStats{Issues: 1, AttachmentsNoMime: 4})
	w.Success(nil, "Pulled 1 issues")

	env := decodeEnvelope(t, stdout.Bytes())
	if len(env.Warnings) != 1 || env.Warnings[0] != "4 attachments had no mime type and were skipped" {
		t.Errorf("warnings = %q", env.Warnings)
	}
}
