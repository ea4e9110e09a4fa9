package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
)

// metaField is the subset of a create-metadata field this package reads.
// Other properties are ignored.
type metaField struct {
	Key           string              `json:"key"`
	Name          string              `json:"name"`
	AllowedValues []jira.AllowedValue `json:"allowedValues"`
}

func decodeFields(raw json.RawMessage) ([]metaField, error) {
	var fields []metaField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for i, f := range fields {
		if f.Key == "" || f.Name == "" {
			return nil, fmt.Errorf("field %d: missing key or name", i)
		}
		for j, v := range f.AllowedValues {
			if v.ID == "" {
				return nil, fmt.Errorf("field %q allowed value %d: missing id", f.Key, j)
			}
		}
	}
	return fields, nil
}

// PriorityOptions returns the allowed values of the priority field in a
// create-metadata field list. Metadata that does not have the expected shape
// is logged and yields no options.
func PriorityOptions(raw json.RawMessage, logger *slog.Logger) []jira.AllowedValue {
	if logger == nil {
		logger = slog.Default()
	}
	if len(raw) == 0 {
		logger.Warn("priority options unavailable", "error", errors.New("empty field metadata"))
		return nil
	}
	fields, err := decodeFields(raw)
	if err != nil {
		logger.Warn("priority options unavailable", "error", err)
		return nil
	}
	for _, f := range fields {
		if f.Key == "priority" {
			return f.AllowedValues
		}
	}
	return nil
}

// PriorityFor picks the option named after the mapped source priority.
func PriorityFor(options []jira.AllowedValue, p model.SourcePriority) *jira.AllowedValue {
	want := TargetPriority(p)
	for _, opt := range options {
		if opt.Name == want {
			return &opt
		}
	}
	return nil
}
