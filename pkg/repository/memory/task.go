package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

type taskRepository struct {
	s *store
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.taskKeys[task.Key]; exists {
		return nil, goerr.Wrap(model.ErrDuplicateTaskKey, "task key already used", goerr.V(model.TaskKeyKey, task.Key))
	}

	now := time.Now().UTC()
	created := task.Copy()
	created.ID = r.s.nextTaskID
	created.UpdatedAt = now
	r.s.nextTaskID++

	r.s.tasks[created.ID] = created
	r.s.taskKeys[created.Key] = created.ID
	return created.Copy(), nil
}

func (r *taskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.getTask(id)
}

func (r *taskRepository) GetByKey(ctx context.Context, key string) (*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.getTaskByKey(key)
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(r.s.tasks))
	for _, task := range r.s.tasks {
		tasks = append(tasks, task.Copy())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return tasks, nil
}

func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, task := range r.s.tasks {
		if task.Status == types.TaskStatusOpened && task.Deadline.Before(now) {
			tasks = append(tasks, task.Copy())
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return tasks, nil
}

func (r *taskRepository) MarkDelayed(ctx context.Context, id int64, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, exists := r.s.tasks[id]
	if !exists {
		return false, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}

	if !task.MarkDelayed(now) {
		return false, nil
	}
	task.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *store) getTask(id int64) (*model.Task, error) {
	task, exists := s.tasks[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}
	return task.Copy(), nil
}

func (s *store) getTaskByKey(key string) (*model.Task, error) {
	id, exists := s.taskKeys[key]
	if !exists {
		return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskKeyKey, key))
	}
	return s.getTask(id)
}
