package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

const taskColumns = `id, task_key, title, priority, status, owner_id, created_at, deadline, paused_for,
	completed_at, frozen_at, frozen_counter, freeze_reason, notes, updated_at`

type taskRepository struct {
	db *pgxpool.Pool
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	created := task.Copy()
	created.UpdatedAt = time.Now().UTC()

	query := `INSERT INTO tasks (task_key, title, priority, status, owner_id, created_at, deadline, paused_for,
		completed_at, frozen_at, frozen_counter, freeze_reason, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	err := r.db.QueryRow(ctx, query,
		created.Key, created.Title, created.Priority.String(), created.Status.String(), created.OwnerID,
		created.CreatedAt, created.Deadline, int64(created.PausedFor),
		created.CompletedAt, created.FrozenAt, encodeCounter(created.FrozenCounter),
		created.FreezeReason, created.Notes, created.UpdatedAt,
	).Scan(&created.ID)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return nil, goerr.Wrap(model.ErrDuplicateTaskKey, "task key already used", goerr.V(model.TaskKeyKey, task.Key))
		}
		return nil, goerr.Wrap(err, "failed to insert task", goerr.V(model.TaskKeyKey, task.Key))
	}

	return created, nil
}

func (r *taskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	return getTask(ctx, r.db, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

func (r *taskRepository) GetByKey(ctx context.Context, key string) (*model.Task, error) {
	return getTask(ctx, r.db, `SELECT `+taskColumns+` FROM tasks WHERE task_key = $1`, key)
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	return listTasks(ctx, r.db, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error) {
	return listTasks(ctx, r.db,
		`SELECT `+taskColumns+` FROM tasks WHERE status = $1 AND deadline < $2 ORDER BY id`,
		types.TaskStatusOpened.String(), now)
}

// MarkDelayed is a single conditional update, so concurrent sweeps change a task at most once.
func (r *taskRepository) MarkDelayed(ctx context.Context, id int64, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 AND deadline < $5`,
		types.TaskStatusDelayed.String(), time.Now().UTC(), id, types.TaskStatusOpened.String(), now)
	if err != nil {
		return false, goerr.Wrap(err, "failed to mark task delayed", goerr.V(model.TaskIDKey, id))
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func getTask(ctx context.Context, q queryer, query string, arg any) (*model.Task, error) {
	task, err := scanTask(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V("lookup", arg))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("lookup", arg))
	}
	return task, nil
}

func listTasks(ctx context.Context, q queryer, query string, args ...any) ([]*model.Task, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tasks")
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate tasks")
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t             model.Task
		priority      string
		status        string
		pausedFor     int64
		frozenCounter *string
	)
	if err := row.Scan(&t.ID, &t.Key, &t.Title, &priority, &status, &t.OwnerID, &t.CreatedAt, &t.Deadline,
		&pausedFor, &t.CompletedAt, &t.FrozenAt, &frozenCounter, &t.FreezeReason, &t.Notes, &t.UpdatedAt); err != nil {
		return nil, err
	}

	t.Priority = types.Priority(priority)
	parsed, err := types.ParseTaskStatus(status)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode task status", goerr.V(model.TaskIDKey, t.ID))
	}
	t.Status = parsed
	t.PausedFor = time.Duration(pausedFor)
	if frozenCounter != nil {
		counter, err := sla.ParseCounter(*frozenCounter)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode frozen counter", goerr.V(model.TaskIDKey, t.ID))
		}
		t.FrozenCounter = &counter
	}
	return &t, nil
}

func encodeCounter(d *time.Duration) *string {
	if d == nil {
		return nil
	}
	s := sla.FormatCounter(*d)
	return &s
}
