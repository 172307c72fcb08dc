package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// transaction stages writes and applies them on commit. The caller holds s.mu.
type transaction struct {
	s        *store
	tasks    map[int64]*model.Task
	requests map[model.RequestID]*model.Request
	users    map[string]*model.User
}

var _ interfaces.Transaction = &transaction{}

func newTransaction(s *store) *transaction {
	return &transaction{
		s:        s,
		tasks:    make(map[int64]*model.Task),
		requests: make(map[model.RequestID]*model.Request),
		users:    make(map[string]*model.User),
	}
}

func (tx *transaction) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	if staged, ok := tx.tasks[id]; ok {
		return staged.Copy(), nil
	}
	return tx.s.getTask(id)
}

func (tx *transaction) GetTaskByKey(ctx context.Context, key string) (*model.Task, error) {
	id, exists := tx.s.taskKeys[key]
	if !exists {
		return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskKeyKey, key))
	}
	return tx.GetTask(ctx, id)
}

func (tx *transaction) UpdateTask(ctx context.Context, task *model.Task) error {
	existing, exists := tx.s.tasks[task.ID]
	if !exists {
		return goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, task.ID))
	}
	if existing.Key != task.Key {
		return goerr.Wrap(model.ErrInvalidArgument, "task key is immutable",
			goerr.V(model.TaskIDKey, task.ID), goerr.V(model.TaskKeyKey, task.Key))
	}
	tx.tasks[task.ID] = task.Copy()
	return nil
}

func (tx *transaction) GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error) {
	if staged, ok := tx.requests[id]; ok {
		return staged.Copy(), nil
	}
	return tx.s.getRequest(id)
}

func (tx *transaction) UpdateRequest(ctx context.Context, req *model.Request) error {
	if _, exists := tx.s.requests[req.ID]; !exists {
		return goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, req.ID))
	}
	tx.requests[req.ID] = req.Copy()
	return nil
}

func (tx *transaction) GetUser(ctx context.Context, id string) (*model.User, error) {
	if staged, ok := tx.users[id]; ok {
		return staged.Copy(), nil
	}
	return tx.s.getUser(id)
}

func (tx *transaction) UpdateUser(ctx context.Context, user *model.User) error {
	if _, exists := tx.s.users[user.ID]; !exists {
		return goerr.Wrap(model.ErrUserNotFound, "user not found", goerr.V(model.UserIDKey, user.ID))
	}
	tx.users[user.ID] = user.Copy()
	return nil
}

func (tx *transaction) commit() error {
	now := time.Now().UTC()

	for id, task := range tx.tasks {
		task.UpdatedAt = now
		tx.s.tasks[id] = task
	}

	for id, req := range tx.requests {
		prev := tx.s.requests[id]
		key := prev.PendingKey()
		if prev.Status == types.RequestStatusPending && req.Status != types.RequestStatusPending {
			if tx.s.pending[key] == id {
				delete(tx.s.pending, key)
			}
		}
		tx.s.requests[id] = req
	}

	for _, user := range tx.users {
		tx.s.putUser(user)
	}

	return nil
}
