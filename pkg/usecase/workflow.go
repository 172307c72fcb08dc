package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// Outcome is what a resolution changed inside its transaction. It drives the side effects
// issued after commit.
type Outcome struct {
	Request *model.Request
	// Task is set when the resolution mutated a task
	Task *model.Task
	// Account is set when the resolution mutated an account
	Account *model.User
	// OverrideEmail routes the requester notification to email instead of the in-app channel
	OverrideEmail string
}

// Workflow maps a decision on each request kind to its side effect.
type Workflow struct {
	dispatch *Dispatcher
}

func NewWorkflow(dispatch *Dispatcher) *Workflow {
	return &Workflow{dispatch: dispatch}
}

// Apply runs in the resolution transaction after req has been resolved in memory. All reads
// happen before any write. Any error aborts the transaction and leaves the request Pending.
func (w *Workflow) Apply(ctx context.Context, tx interfaces.Transaction, req *model.Request, now time.Time) (*Outcome, error) {
	out := &Outcome{Request: req}
	approved := req.Status == types.RequestStatusApproved

	switch p := req.Payload.(type) {
	case *model.CompleteTaskPayload:
		if approved {
			task, err := ownedTask(ctx, tx, p.TaskKey, req.RequesterID)
			if err != nil {
				return nil, err
			}
			if err := task.Complete(now, req.Notes); err != nil {
				return nil, err
			}
			out.Task = task
		}

	case *model.FreezeTaskPayload:
		if approved {
			task, err := ownedTask(ctx, tx, p.TaskKey, req.RequesterID)
			if err != nil {
				return nil, err
			}
			if err := task.Freeze(now, p.ReasonMessage); err != nil {
				return nil, err
			}
			out.Task = task
		}

	case *model.UnfreezeTaskPayload:
		if approved {
			task, err := ownedTask(ctx, tx, p.TaskKey, req.RequesterID)
			if err != nil {
				return nil, err
			}
			if err := task.Resume(now); err != nil {
				return nil, err
			}
			out.Task = task
		}

	case *model.DeactivateAccountPayload:
		// a deactivated account may lose in-app access, so both outcomes go by email
		out.OverrideEmail = req.RequesterEmail
		if approved {
			account, err := tx.GetUser(ctx, p.AccountID)
			if err != nil {
				return nil, err
			}
			account.Active = false
			out.Account = account
		}

	default:
		return nil, goerr.Wrap(model.ErrInvalidPayload, "unsupported request payload",
			goerr.V(model.RequestIDKey, req.ID), goerr.V(model.RequestKindKey, req.Kind))
	}

	if out.Task != nil {
		if err := tx.UpdateTask(ctx, out.Task); err != nil {
			return nil, err
		}
	}
	if out.Account != nil {
		if err := tx.UpdateUser(ctx, out.Account); err != nil {
			return nil, err
		}
	}
	if err := tx.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	return out, nil
}

// ownedTask loads the task by business key and checks it belongs to the requester.
func ownedTask(ctx context.Context, tx interfaces.Transaction, key, ownerID string) (*model.Task, error) {
	task, err := tx.GetTaskByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, goerr.Wrap(model.ErrNotTaskOwner, "task is not owned by the requester",
			goerr.V(model.TaskKeyKey, key), goerr.V(model.UserIDKey, ownerID))
	}
	return task, nil
}

// AfterCommit issues the notification, recomputation and archive of a committed resolution.
func (w *Workflow) AfterCommit(ctx context.Context, out *Outcome, resolverID string, now time.Time) {
	req := out.Request

	category := types.NotificationReject
	verb := "rejected"
	if req.Status == types.RequestStatusApproved {
		category = types.NotificationApproval
		verb = "approved"
	}

	msg := fmt.Sprintf("Your %s request for %s was %s.", describeKind(req.Kind), req.Target(), verb)
	if req.ResolutionComment != "" {
		msg += " Comment: " + req.ResolutionComment
	}

	w.dispatch.Notify(ctx, &model.Notification{
		RecipientID:   req.RequesterID,
		Message:       msg,
		Category:      category,
		OverrideEmail: out.OverrideEmail,
		RequestID:     req.ID,
		CreatedAt:     now,
	})

	if out.Task != nil && out.Task.Status == types.TaskStatusCompleted {
		w.dispatch.Recompute(ctx, PeriodKey(now), out.Task.OwnerID, resolverID)
	}

	w.dispatch.Archive(ctx, req)
}

// PeriodKey is the aggregation period of performance scores: the calendar year.
func PeriodKey(t time.Time) string {
	return t.Format("2006")
}

func describeKind(kind types.RequestKind) string {
	switch kind {
	case types.RequestKindCompleteTask:
		return "task completion"
	case types.RequestKindDeactivateAccount:
		return "account deactivation"
	case types.RequestKindFreezeTask:
		return "task freeze"
	case types.RequestKindUnfreezeTask:
		return "task unfreeze"
	default:
		return string(kind)
	}
}
