package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

type RequestUseCase struct {
	repo     interfaces.Repository
	workflow *Workflow
	dispatch *Dispatcher
	now      func() time.Time
}

func NewRequestUseCase(repo interfaces.Repository, workflow *Workflow, dispatch *Dispatcher, now func() time.Time) *RequestUseCase {
	if now == nil {
		now = time.Now
	}
	return &RequestUseCase{
		repo:     repo,
		workflow: workflow,
		dispatch: dispatch,
		now:      now,
	}
}

// Submit creates a Pending request of kind on behalf of the actor in ctx.
func (uc *RequestUseCase) Submit(ctx context.Context, kind types.RequestKind, input SubmitInput) (*model.Request, error) {
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown request kind", goerr.V(model.RequestKindKey, kind))
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	requester, err := uc.repo.User().Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !requester.Active {
		return nil, goerr.Wrap(model.ErrAccountDeactivated, "deactivated account cannot submit requests",
			goerr.V(model.UserIDKey, requester.ID))
	}

	target := input.Target
	if target == "" && kind == types.RequestKindDeactivateAccount {
		target = requester.ID
	}
	payload, err := model.NewPayload(kind, target, input.Reason)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	req, err := model.NewRequest(requester, payload, input.Notes, now)
	if err != nil {
		return nil, err
	}

	if kind.TargetsTask() {
		if err := uc.checkTaskTarget(ctx, req); err != nil {
			return nil, err
		}
	}

	// fast path; the store enforces the same rule when two submissions race
	pending, err := uc.repo.Request().HasPending(ctx, req.PendingKey())
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, goerr.Wrap(model.ErrDuplicatePendingRequest, "a pending request already exists",
			goerr.V(model.RequestKindKey, kind), goerr.V(model.UserIDKey, requester.ID), goerr.V("target", target))
	}

	created, err := uc.repo.Request().Create(ctx, req)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("request submitted",
		"request_id", created.ID,
		"kind", created.Kind,
		"requester", created.RequesterID,
		"target", created.Target())

	if requester.LeaderID != "" {
		uc.dispatch.Notify(ctx, &model.Notification{
			RecipientID: requester.LeaderID,
			Message:     fmt.Sprintf("%s submitted a %s request for %s.", requester.Name, describeKind(kind), created.Target()),
			Category:    types.NotificationRequest,
			RequestID:   created.ID,
			CreatedAt:   now,
		})
	}

	return created, nil
}

// checkTaskTarget rejects requests on tasks the requester does not own or whose state
// makes approval impossible. Approval checks again inside its transaction.
func (uc *RequestUseCase) checkTaskTarget(ctx context.Context, req *model.Request) error {
	task, err := uc.repo.Task().GetByKey(ctx, req.Target())
	if err != nil {
		return err
	}
	if task.OwnerID != req.RequesterID {
		return goerr.Wrap(model.ErrNotTaskOwner, "task is not owned by the requester",
			goerr.V(model.TaskKeyKey, task.Key), goerr.V(model.UserIDKey, req.RequesterID))
	}

	switch req.Kind {
	case types.RequestKindCompleteTask, types.RequestKindFreezeTask:
		if !task.Status.IsLive() {
			return taskStateError(task, req.Kind)
		}
	case types.RequestKindUnfreezeTask:
		if task.Status != types.TaskStatusFrozen {
			return taskStateError(task, req.Kind)
		}
	}
	return nil
}

func taskStateError(task *model.Task, kind types.RequestKind) error {
	base := model.ErrInvalidTransition
	if task.Status.IsTerminal() {
		base = model.ErrTaskCompleted
	}
	return goerr.Wrap(base, "task state does not allow this request",
		goerr.V(model.TaskKeyKey, task.Key), goerr.V(model.StatusKey, task.Status), goerr.V(model.RequestKindKey, kind))
}

// List returns the requests of kind in submission order. Members only see their own.
func (uc *RequestUseCase) List(ctx context.Context, kind types.RequestKind) ([]*model.Request, error) {
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown request kind", goerr.V(model.RequestKindKey, kind))
	}

	requests, err := uc.repo.Request().ListByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	if actor.Role.CanResolve() {
		return requests, nil
	}

	own := make([]*model.Request, 0, len(requests))
	for _, req := range requests {
		if req.RequesterID == actor.ID {
			own = append(own, req)
		}
	}
	return own, nil
}

func (uc *RequestUseCase) Get(ctx context.Context, id model.RequestID) (*model.Request, error) {
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	req, err := uc.repo.Request().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanResolve() && req.RequesterID != actor.ID {
		return nil, goerr.Wrap(model.ErrRoleRequired, "request belongs to another member",
			goerr.V(model.RequestIDKey, id), goerr.V(model.UserIDKey, actor.ID))
	}
	return req, nil
}

// Resolve approves or rejects a Pending request. The status change and its side effect on
// the task or account commit together; at most one of any concurrent calls succeeds.
func (uc *RequestUseCase) Resolve(ctx context.Context, id model.RequestID, input ResolveInput) (*model.Request, error) {
	actor, err := auth.RequireRole(ctx, types.Role.CanResolve)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := uc.now()
	var out *Outcome
	err = uc.repo.RunTransaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		out = nil

		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := req.Resolve(input.Decision, actor.ID, input.Comment, now); err != nil {
			return err
		}

		applied, err := uc.workflow.Apply(ctx, tx, req, now)
		if err != nil {
			return err
		}
		out = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("request resolved",
		"request_id", out.Request.ID,
		"kind", out.Request.Kind,
		"status", out.Request.Status,
		"resolver", actor.ID)

	uc.workflow.AfterCommit(ctx, out, actor.ID, now)

	return out.Request, nil
}
