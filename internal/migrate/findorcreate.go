package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/model"
	"github.com/ALT-F4-LLC/trackmove/internal/retry"
)

// Confirmation budget for newly created target issues.
const (
	ConfirmAttempts  = 6
	ConfirmBaseDelay = 500 * time.Millisecond
)

// DefaultConfirmPolicy polls search after a create: 6 attempts, waiting
// 500ms, 1s, 2s, 4s, 8s between them.
func DefaultConfirmPolicy() retry.Policy {
	return retry.Policy{
		Name:        "confirm-create",
		MaxAttempts: ConfirmAttempts,
		Delay:       retry.Exponential(ConfirmBaseDelay),
	}
}

var errNotVisible = errors.New("issue not visible in search yet")

// Outcome reports how FindOrCreate obtained the target issue.
type Outcome int

const (
	Found Outcome = iota
	Created
)

func (o Outcome) String() string {
	if o == Created {
		return "created"
	}
	return "found"
}

// FindOrCreate returns the target issue whose back-reference field holds
// issue.Key.
//
// With one or more matches the first is returned and every other match is
// deleted along with its subtasks. With none, an issue is created and search
// is polled under the confirm policy until it appears; the create response
// itself is not used. If it never appears the error wraps
// ErrCreateUnconfirmed.
func (p *Pusher) FindOrCreate(ctx context.Context, issue *model.Issue, projectID string, issueType jira.IssueTypeMeta) (*jira.Issue, Outcome, error) {
	logger := p.logger().With("issue", issue.Key)

	matches, err := p.searchBySourceKey(ctx, issue.Key)
	if err != nil {
		return nil, Found, err
	}
	if len(matches) > 0 {
		canonical := matches[0]
		logger.Info("found existing target issue", "target", canonical.Key)
		for _, dup := range matches[1:] {
			logger.Warn("deleting duplicate target issue", "target", dup.Key, "canonical", canonical.Key)
			err := p.Target.DeleteIssue(ctx, dup.ID, true)
			if jira.IsNotFound(err) {
				// Removed already, e.g. as a subtask of an earlier duplicate.
				logger.Info("duplicate target issue already gone", "target", dup.Key)
				continue
			}
			if err != nil {
				return nil, Found, fmt.Errorf("deleting duplicate %s: %w", dup.Key, err)
			}
			if p.stats != nil {
				p.stats.DuplicatesDeleted++
			}
		}
		return &canonical, Found, nil
	}

	logger.Info("creating target issue")
	_, err = p.Target.CreateIssue(ctx, map[string]any{
		"project":        map[string]string{"id": projectID},
		"summary":        issue.Summary,
		"issuetype":      map[string]string{"id": issueType.ID},
		p.SourceKeyField: issue.Key,
	})
	if err != nil {
		return nil, Created, err
	}

	policy := p.ConfirmPolicy
	if policy.MaxAttempts == 0 && policy.Delay == nil {
		policy = DefaultConfirmPolicy()
	}
	policy.Name = "confirm-create " + issue.Key

	found, err := retry.Do(ctx, policy, logger, func(ctx context.Context) (*jira.Issue, error) {
		matches, err := p.searchBySourceKey(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, errNotVisible
		}
		return &matches[0], nil
	})
	if err != nil {
		if errors.Is(err, errNotVisible) {
			return nil, Created, ErrCreateUnconfirmed
		}
		return nil, Created, fmt.Errorf("confirming create: %w", err)
	}

	logger.Info("created target issue", "target", found.Key)
	return found, Created, nil
}

func (p *Pusher) searchBySourceKey(ctx context.Context, key string) ([]jira.Issue, error) {
	res, err := p.Target.SearchJQL(ctx, jira.SearchRequest{
		JQL:    p.SourceKeyJQL(key),
		Fields: []string{"attachment", "comment"},
		Expand: "renderedFields",
	})
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// SourceKeyJQL is the query matching target issues whose back-reference
// field contains key.
func (p *Pusher) SourceKeyJQL(key string) string {
	return fmt.Sprintf("project = %s AND %s ~ %s", quoteJQL(p.Project), p.SourceKeyField, quoteJQL(key))
}
