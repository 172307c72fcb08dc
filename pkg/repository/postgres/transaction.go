package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

type transaction struct {
	tx pgx.Tx
}

var _ interfaces.Transaction = &transaction{}

func (t *transaction) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return getTask(ctx, t.tx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

func (t *transaction) GetTaskByKey(ctx context.Context, key string) (*model.Task, error) {
	return getTask(ctx, t.tx, `SELECT `+taskColumns+` FROM tasks WHERE task_key = $1 FOR UPDATE`, key)
}

func (t *transaction) UpdateTask(ctx context.Context, task *model.Task) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE tasks SET title = $1, priority = $2, status = $3, owner_id = $4, deadline = $5, paused_for = $6,
			completed_at = $7, frozen_at = $8, frozen_counter = $9, freeze_reason = $10, notes = $11, updated_at = $12
		WHERE id = $13 AND task_key = $14`,
		task.Title, task.Priority.String(), task.Status.String(), task.OwnerID, task.Deadline, int64(task.PausedFor),
		task.CompletedAt, task.FrozenAt, encodeCounter(task.FrozenCounter), task.FreezeReason, task.Notes,
		time.Now().UTC(), task.ID, task.Key)
	if err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V(model.TaskIDKey, task.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, task.ID), goerr.V(model.TaskKeyKey, task.Key))
	}
	return nil
}

func (t *transaction) GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error) {
	return getRequest(ctx, t.tx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

// UpdateRequest needs no lock bookkeeping: rows leaving PENDING drop out of the partial index.
func (t *transaction) UpdateRequest(ctx context.Context, req *model.Request) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE requests SET status = $1, notes = $2, resolved_by = $3, resolved_at = $4, resolution_comment = $5
		WHERE id = $6`,
		req.Status.String(), req.Notes, req.ResolvedBy, req.ResolvedAt, req.ResolutionComment, req.ID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to update request", goerr.V(model.RequestIDKey, req.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, req.ID))
	}
	return nil
}

func (t *transaction) GetUser(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, t.tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (t *transaction) UpdateUser(ctx context.Context, user *model.User) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, role = $3, leader_id = $4, active = $5, updated_at = $6 WHERE id = $7`,
		user.Name, user.Email, user.Role.String(), user.LeaderID, user.Active, time.Now().UTC(), user.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V(model.UserIDKey, user.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrUserNotFound, "user not found", goerr.V(model.UserIDKey, user.ID))
	}
	return nil
}
