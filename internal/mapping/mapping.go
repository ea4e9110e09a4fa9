// Package mapping translates source tracker enumerations into the names the
// target tracker uses.
package mapping

import "github.com/ALT-F4-LLC/trackmove/internal/model"

// Target status names.
const (
	StatusCanceled   = "Canceled"
	StatusToDo       = "To Do"
	StatusDesign     = "Design"
	StatusInProgress = "In Progress"
	StatusQAFailed   = "QA Failed"
	StatusPRReview   = "PR Review"
	StatusQAReady    = "QA Ready"
	StatusQAComplete = "QA Complete"
	StatusCompleted  = "Completed"
	StatusDevReady   = "Dev Ready"
)

// Target issue type names.
const (
	TypeEpic    = "Epic"
	TypeTask    = "Task"
	TypeSubTask = "Sub-task"
	TypeBug     = "Bug"
	TypeStory   = "Story"
)

// Target priority names.
const (
	PriorityBlocker = "Blocker"
	PriorityHigh    = "High"
	PriorityMedium  = "Medium"
	PriorityLow     = "Low"
)

// TargetStatus returns the target workflow status for a source status.
// Unknown statuses map to To Do.
func TargetStatus(s model.SourceStatus) string {
	switch s {
	case model.StatusQAFailed:
		return StatusQAFailed
	case model.StatusQAPassed:
		return StatusQAComplete
	case model.StatusCodeMerged, model.StatusQAReady:
		return StatusQAReady
	case model.StatusBacklog, model.StatusOpen:
		return StatusDevReady
	case model.StatusCancelled, model.StatusRejected:
		return StatusCanceled
	case model.StatusDone:
		return StatusCompleted
	case model.StatusInCodeReview:
		return StatusPRReview
	case model.StatusInProgress:
		return StatusInProgress
	case model.StatusInReview:
		return StatusDesign
	default:
		return StatusToDo
	}
}

// TargetIssueType returns the target issue type name for a source issue
// type. Unknown types map to Task.
func TargetIssueType(t model.SourceIssueType) string {
	switch t {
	case model.IssueTypeEpic:
		return TypeEpic
	case model.IssueTypeSubTask:
		return TypeSubTask
	case model.IssueTypeBug:
		return TypeBug
	case model.IssueTypeStory:
		return TypeStory
	default:
		return TypeTask
	}
}

// TargetPriority returns the target priority name for a source priority.
// Unknown priorities map to Medium.
func TargetPriority(p model.SourcePriority) string {
	switch p {
	case model.PriorityBlocker, model.PriorityCritical:
		return PriorityBlocker
	case model.PriorityHigh, model.PriorityHighest, model.PriorityMajor:
		return PriorityHigh
	case model.PriorityLow, model.PriorityLowest, model.PriorityTrivial, model.PriorityMinor:
		return PriorityLow
	default:
		return PriorityMedium
	}
}
