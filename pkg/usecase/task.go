package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

type TaskUseCase struct {
	repo     interfaces.Repository
	policy   sla.Policy
	dispatch *Dispatcher
	now      func() time.Time
}

func NewTaskUseCase(repo interfaces.Repository, policy sla.Policy, dispatch *Dispatcher, now func() time.Time) *TaskUseCase {
	if now == nil {
		now = time.Now
	}
	return &TaskUseCase{
		repo:     repo,
		policy:   policy,
		dispatch: dispatch,
		now:      now,
	}
}

func (uc *TaskUseCase) CreateTask(ctx context.Context, input CreateTaskInput) (*model.Task, error) {
	if _, err := auth.RequireRole(ctx, types.Role.IsAdministrative); err != nil {
		return nil, err
	}
	if err := model.ValidateBusinessKey(input.Key); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := uc.repo.User().Get(ctx, input.OwnerID); err != nil {
		return nil, err
	}

	now := uc.now()
	task, err := model.NewTask(uc.policy, input.Key, input.Title, input.Priority, input.OwnerID, now)
	if err != nil {
		return nil, err
	}

	created, err := uc.repo.Task().Create(ctx, task)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("task created",
		"task_id", created.ID,
		"task_key", created.Key,
		"priority", created.Priority,
		"deadline", created.Deadline)

	uc.dispatch.Notify(ctx, &model.Notification{
		RecipientID: created.OwnerID,
		Message: fmt.Sprintf("Task %s (%s) was assigned to you. Deadline: %s.",
			created.Key, created.Priority, created.Deadline.Format(time.RFC3339)),
		Category:  types.NotificationInfo,
		CreatedAt: now,
	})

	return created, nil
}

// GetTask returns the task with Delayed derived at read time. Members only see their own.
func (uc *TaskUseCase) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := uc.readableTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = task.EffectiveStatus(uc.now())
	return task, nil
}

// GetTaskCounter returns the remaining (positive) or overdue (negative) time of the task at now.
func (uc *TaskUseCase) GetTaskCounter(ctx context.Context, id int64, now time.Time) (time.Duration, error) {
	task, err := uc.readableTask(ctx, id)
	if err != nil {
		return 0, err
	}
	return task.Counter(now), nil
}

func (uc *TaskUseCase) readableTask(ctx context.Context, id int64) (*model.Task, error) {
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	task, err := uc.repo.Task().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsAdministrative() && task.OwnerID != actor.ID {
		return nil, goerr.Wrap(model.ErrNotTaskOwner, "task belongs to another member",
			goerr.V(model.TaskIDKey, id), goerr.V(model.UserIDKey, actor.ID))
	}
	return task, nil
}

// FreezeTask pauses the deadline clock of a live task.
func (uc *TaskUseCase) FreezeTask(ctx context.Context, id int64, input FreezeInput) (*model.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "frozen", func(task *model.Task, now time.Time) error {
		return task.Freeze(now, input.Reason)
	})
}

// ResumeTask restarts the clock of a frozen task from its captured counter.
func (uc *TaskUseCase) ResumeTask(ctx context.Context, id int64) (*model.Task, error) {
	return uc.mutate(ctx, id, "resumed", func(task *model.Task, now time.Time) error {
		return task.Resume(now)
	})
}

// ChangePriority recomputes the deadline of a live task for a new priority.
func (uc *TaskUseCase) ChangePriority(ctx context.Context, id int64, input ChangePriorityInput) (*model.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "reprioritized", func(task *model.Task, now time.Time) error {
		return task.ChangePriority(uc.policy, input.Priority, now)
	})
}

// mutate applies an administrative transition in a transaction and tells the owner.
func (uc *TaskUseCase) mutate(ctx context.Context, id int64, verb string, apply func(task *model.Task, now time.Time) error) (*model.Task, error) {
	actor, err := auth.RequireRole(ctx, types.Role.IsAdministrative)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var updated *model.Task
	err = uc.repo.RunTransaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(task, now); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("task "+verb,
		"task_id", updated.ID,
		"task_key", updated.Key,
		"status", updated.Status,
		"actor", actor.ID)

	uc.dispatch.Notify(ctx, &model.Notification{
		RecipientID: updated.OwnerID,
		Message:     fmt.Sprintf("Task %s was %s by %s.", updated.Key, verb, actor.ID),
		Category:    types.NotificationInfo,
		CreatedAt:   now,
	})

	return updated, nil
}

// SweepDelayed materializes Opened -> Delayed for every overdue task and returns how many
// tasks changed. Failures on single tasks are logged and skipped.
func (uc *TaskUseCase) SweepDelayed(ctx context.Context) (int, error) {
	now := uc.now()
	tasks, err := uc.repo.Task().ListOverdue(ctx, now)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list overdue tasks")
	}

	changed := 0
	for _, task := range tasks {
		ok, err := uc.repo.Task().MarkDelayed(ctx, task.ID, now)
		if err != nil {
			errutil.Handle(ctx, err, "failed to mark task delayed")
			continue
		}
		if ok {
			changed++
		}
	}

	if changed > 0 {
		logging.From(ctx).Info("delayed sweep finished", "overdue", len(tasks), "changed", changed)
	}
	return changed, nil
}
