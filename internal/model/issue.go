package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/adf"
)

// SourceStatus is the workflow state of an issue in the source tracker.
type SourceStatus string

const (
	StatusBacklog      SourceStatus = "BACKLOG"
	StatusCancelled    SourceStatus = "CANCELLED"
	StatusCodeMerged   SourceStatus = "CODE_MERGED"
	StatusDone         SourceStatus = "DONE"
	StatusInCodeReview SourceStatus = "IN_CODE_REVIEW"
	StatusInProgress   SourceStatus = "IN_PROGRESS"
	StatusInReview     SourceStatus = "IN_REVIEW"
	StatusOpen         SourceStatus = "OPEN"
	StatusQAReady      SourceStatus = "QA_READY"
	StatusQAFailed     SourceStatus = "QA_FAILED"
	StatusQAPassed     SourceStatus = "QA_PASSED"
	StatusRejected     SourceStatus = "REJECTED"
	StatusToDo         SourceStatus = "TO_DO"
)

// Statuses lists every SourceStatus.
var Statuses = []SourceStatus{
	StatusBacklog,
	StatusCancelled,
	StatusCodeMerged,
	StatusDone,
	StatusInCodeReview,
	StatusInProgress,
	StatusInReview,
	StatusOpen,
	StatusQAReady,
	StatusQAFailed,
	StatusQAPassed,
	StatusRejected,
	StatusToDo,
}

// ValidateStatus returns an error if s is not a recognized status.
func ValidateStatus(s SourceStatus) error {
	for _, v := range Statuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q: must be one of %v", s, Statuses)
}

// ParseSourceStatus maps a source tracker status name to a SourceStatus.
// Unknown names fall into the backlog.
func ParseSourceStatus(name string) SourceStatus {
	switch name {
	case "Backlog":
		return StatusBacklog
	case "Cancelled":
		return StatusCancelled
	case "CODE MERGED (DEV TEST)":
		return StatusCodeMerged
	case "Done":
		return StatusDone
	case "In Code Review":
		return StatusInCodeReview
	case "In Progress":
		return StatusInProgress
	case "In Review":
		return StatusInReview
	case "Open":
		return StatusOpen
	case "QA Ready":
		return StatusQAReady
	case "Rejected":
		return StatusRejected
	case "To Do":
		return StatusToDo
	default:
		return StatusBacklog
	}
}

// Color returns a color name string suitable for terminal rendering.
func (s SourceStatus) Color() string {
	switch s {
	case StatusBacklog, StatusOpen, StatusToDo:
		return "gray"
	case StatusInProgress, StatusInCodeReview, StatusInReview:
		return "yellow"
	case StatusQAReady, StatusCodeMerged, StatusQAFailed:
		return "magenta"
	case StatusDone, StatusQAPassed:
		return "green"
	case StatusCancelled, StatusRejected:
		return "red"
	default:
		return "white"
	}
}

// SourcePriority is the urgency of an issue in the source tracker.
type SourcePriority string

const (
	PriorityLowest   SourcePriority = "LOWEST"
	PriorityLow      SourcePriority = "LOW"
	PriorityMedium   SourcePriority = "MEDIUM"
	PriorityHigh     SourcePriority = "HIGH"
	PriorityHighest  SourcePriority = "HIGHEST"
	PriorityTrivial  SourcePriority = "TRIVIAL"
	PriorityMinor    SourcePriority = "MINOR"
	PriorityCritical SourcePriority = "CRITICAL"
	PriorityBlocker  SourcePriority = "BLOCKER"
	PriorityMajor    SourcePriority = "MAJOR"
)

// Priorities lists every SourcePriority.
var Priorities = []SourcePriority{
	PriorityLowest,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityHighest,
	PriorityTrivial,
	PriorityMinor,
	PriorityCritical,
	PriorityBlocker,
	PriorityMajor,
}

// ValidatePriority returns an error if p is not a recognized priority.
func ValidatePriority(p SourcePriority) error {
	for _, v := range Priorities {
		if p == v {
			return nil
		}
	}
	return fmt.Errorf("invalid priority %q: must be one of %v", p, Priorities)
}

// ParseSourcePriority maps a source tracker priority name to a
// SourcePriority. Unknown names are treated as medium.
func ParseSourcePriority(name string) SourcePriority {
	switch name {
	case "Lowest":
		return PriorityLowest
	case "Low":
		return PriorityLow
	case "Medium":
		return PriorityMedium
	case "High":
		return PriorityHigh
	case "Highest":
		return PriorityHighest
	case "Trivial":
		return PriorityTrivial
	case "Minor":
		return PriorityMinor
	case "Critical":
		return PriorityCritical
	case "Blocker":
		return PriorityBlocker
	case "Major":
		return PriorityMajor
	default:
		return PriorityMedium
	}
}

// Emoji returns a short urgency marker for the priority level.
func (p SourcePriority) Emoji() string {
	switch p {
	case PriorityBlocker, PriorityCritical:
		return "!!!"
	case PriorityHighest, PriorityHigh, PriorityMajor:
		return "!!"
	case PriorityMedium:
		return "!"
	case PriorityLow, PriorityLowest, PriorityMinor, PriorityTrivial:
		return "-"
	default:
		return " "
	}
}

// SourceIssueType is the category of an issue in the source tracker.
type SourceIssueType string

const (
	IssueTypeSubTask SourceIssueType = "SUB_TASK"
	IssueTypeTask    SourceIssueType = "TASK"
	IssueTypeBug     SourceIssueType = "BUG"
	IssueTypeStory   SourceIssueType = "STORY"
	IssueTypeEpic    SourceIssueType = "EPIC"
)

// IssueTypes lists every SourceIssueType.
var IssueTypes = []SourceIssueType{
	IssueTypeSubTask,
	IssueTypeTask,
	IssueTypeBug,
	IssueTypeStory,
	IssueTypeEpic,
}

// ValidateIssueType returns an error if t is not a recognized issue type.
func ValidateIssueType(t SourceIssueType) error {
	for _, v := range IssueTypes {
		if t == v {
			return nil
		}
	}
	return fmt.Errorf("invalid issue type %q: must be one of %v", t, IssueTypes)
}

// ParseSourceIssueType maps a source tracker issue type name to a
// SourceIssueType. Unknown names are treated as tasks.
func ParseSourceIssueType(name string) SourceIssueType {
	switch name {
	case "Sub-task":
		return IssueTypeSubTask
	case "Task":
		return IssueTypeTask
	case "Bug":
		return IssueTypeBug
	case "Story":
		return IssueTypeStory
	case "Epic":
		return IssueTypeEpic
	default:
		return IssueTypeTask
	}
}

// Issue is the snapshot of a source tracker issue.
type Issue struct {
	ID          int
	Key         string
	Summary     string
	CreatedAt   time.Time
	ParentKey   string
	Assignee    *User
	Reporter    *User
	Status      SourceStatus
	Type        SourceIssueType
	Priority    SourcePriority
	Description *adf.Document
	Comments    []*Comment
	Attachments []*Attachment

	// TargetKey is the key of the target issue found or created by push.
	TargetKey string
}

// issueJSON is the JSON wire format for Issue.
type issueJSON struct {
	Key         string        `json:"key"`
	Summary     string        `json:"summary"`
	CreatedAt   string        `json:"created_at"`
	ParentKey   string        `json:"parent_key,omitempty"`
	Assignee    *User         `json:"assignee,omitempty"`
	Reporter    *User         `json:"reporter,omitempty"`
	Status      string        `json:"status"`
	Type        string        `json:"type"`
	Priority    string        `json:"priority"`
	Description *adf.Document `json:"description,omitempty"`
	Comments    []*Comment    `json:"comments"`
	Attachments []*Attachment `json:"attachments"`
	TargetKey   string        `json:"target_key,omitempty"`
}

// MarshalJSON implements custom JSON serialization for Issue.
func (i Issue) MarshalJSON() ([]byte, error) {
	comments := i.Comments
	if comments == nil {
		comments = []*Comment{}
	}
	attachments := i.Attachments
	if attachments == nil {
		attachments = []*Attachment{}
	}

	return json.Marshal(issueJSON{
		Key:         i.Key,
		Summary:     i.Summary,
		CreatedAt:   i.CreatedAt.UTC().Format(time.RFC3339),
		ParentKey:   i.ParentKey,
		Assignee:    i.Assignee,
		Reporter:    i.Reporter,
		Status:      string(i.Status),
		Type:        string(i.Type),
		Priority:    string(i.Priority),
		Description: i.Description,
		Comments:    comments,
		Attachments: attachments,
		TargetKey:   i.TargetKey,
	})
}
