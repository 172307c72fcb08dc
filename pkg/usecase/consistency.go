package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// ConsistencyIssue is a stored record that breaks a structural invariant
type ConsistencyIssue struct {
	Subject string
	ID      string
	Message string
}

// ConsistencyResult collects the issues found by CheckConsistency
type ConsistencyResult struct {
	Issues []ConsistencyIssue
}

func (r *ConsistencyResult) HasIssues() bool {
	return len(r.Issues) > 0
}

func (r *ConsistencyResult) add(subject, id, msg string) {
	r.Issues = append(r.Issues, ConsistencyIssue{Subject: subject, ID: id, Message: msg})
}

// CheckConsistency walks every task and user and reports records that violate invariants:
// malformed tasks, tasks owned by unknown users and reporting lines to unknown leaders.
func CheckConsistency(ctx context.Context, repo interfaces.Repository) (*ConsistencyResult, error) {
	users, err := repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
	}

	result := &ConsistencyResult{}
	for _, u := range users {
		if u.LeaderID != "" && !known[u.LeaderID] {
			result.add("user", u.ID, "leader "+u.LeaderID+" does not exist")
		}
	}

	tasks, err := repo.Task().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	for _, task := range tasks {
		id := task.Key
		if err := task.Validate(); err != nil {
			result.add("task", id, err.Error())
		}
		if !known[task.OwnerID] {
			result.add("task", id, "owner "+task.OwnerID+" does not exist")
		}
		if model.ValidateBusinessKey(task.Key) == nil {
			if byKey, err := repo.Task().GetByKey(ctx, task.Key); err != nil || byKey.ID != task.ID {
				result.add("task", id, "business key index does not point to the task")
			}
		}
	}

	return result, nil
}
