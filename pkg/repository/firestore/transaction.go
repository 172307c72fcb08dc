package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// transaction adapts *firestore.Transaction. It remembers what it read so that writes can
// be checked without a second read, which Firestore forbids after the first write.
type transaction struct {
	client   *firestore.Client
	names    *collections
	tx       *firestore.Transaction
	tasks    map[int64]*model.Task
	requests map[model.RequestID]*model.Request
	users    map[string]bool
}

var _ interfaces.Transaction = &transaction{}

func newTransaction(client *firestore.Client, names *collections, tx *firestore.Transaction) *transaction {
	return &transaction{
		client:   client,
		names:    names,
		tx:       tx,
		tasks:    make(map[int64]*model.Task),
		requests: make(map[model.RequestID]*model.Request),
		users:    make(map[string]bool),
	}
}

func (t *transaction) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	docSnap, err := t.tx.Get(t.client.Collection(t.names.tasks()).Doc(taskDocID(id)))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(model.TaskIDKey, id))
	}

	task, err := decodeTask(docSnap)
	if err != nil {
		return nil, err
	}
	t.tasks[id] = task.Copy()
	return task, nil
}

func (t *transaction) GetTaskByKey(ctx context.Context, key string) (*model.Task, error) {
	keySnap, err := t.tx.Get(t.client.Collection(t.names.taskKeys()).Doc(key))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskKeyKey, key))
		}
		return nil, goerr.Wrap(err, "failed to get task key", goerr.V(model.TaskKeyKey, key))
	}

	var ref taskKeyDoc
	if err := keySnap.DataTo(&ref); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task key", goerr.V(model.TaskKeyKey, key))
	}
	return t.GetTask(ctx, ref.TaskID)
}

func (t *transaction) UpdateTask(ctx context.Context, task *model.Task) error {
	prev, ok := t.tasks[task.ID]
	if !ok {
		return goerr.New("task must be read in the transaction before update", goerr.V(model.TaskIDKey, task.ID))
	}
	if prev.Key != task.Key {
		return goerr.Wrap(model.ErrInvalidArgument, "task key is immutable",
			goerr.V(model.TaskIDKey, task.ID), goerr.V(model.TaskKeyKey, task.Key))
	}

	updated := task.Copy()
	updated.UpdatedAt = time.Now().UTC()
	ref := t.client.Collection(t.names.tasks()).Doc(taskDocID(task.ID))
	if err := t.tx.Set(ref, newTaskDoc(updated)); err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V(model.TaskIDKey, task.ID))
	}
	return nil
}

func (t *transaction) GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error) {
	docSnap, err := t.tx.Get(t.client.Collection(t.names.requests()).Doc(id.String()))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get request", goerr.V(model.RequestIDKey, id))
	}

	req, err := decodeRequest(docSnap)
	if err != nil {
		return nil, err
	}
	t.requests[id] = req.Copy()
	return req, nil
}

// UpdateRequest releases the pending lock when the request leaves Pending.
func (t *transaction) UpdateRequest(ctx context.Context, req *model.Request) error {
	prev, ok := t.requests[req.ID]
	if !ok {
		return goerr.New("request must be read in the transaction before update", goerr.V(model.RequestIDKey, req.ID))
	}

	ref := t.client.Collection(t.names.requests()).Doc(req.ID.String())
	if err := t.tx.Set(ref, newRequestDoc(req)); err != nil {
		return goerr.Wrap(err, "failed to update request", goerr.V(model.RequestIDKey, req.ID))
	}

	if prev.Status == types.RequestStatusPending && req.Status != types.RequestStatusPending {
		lockRef := t.client.Collection(t.names.pending()).Doc(pendingLockID(prev.PendingKey()))
		if err := t.tx.Delete(lockRef); err != nil {
			return goerr.Wrap(err, "failed to release pending lock", goerr.V(model.RequestIDKey, req.ID))
		}
	}
	return nil
}

func (t *transaction) GetUser(ctx context.Context, id string) (*model.User, error) {
	docSnap, err := t.tx.Get(t.client.Collection(t.names.users()).Doc(userDocID(id)))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrUserNotFound, "user not found", goerr.V(model.UserIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(model.UserIDKey, id))
	}

	u, err := decodeUser(docSnap)
	if err != nil {
		return nil, err
	}
	t.users[id] = true
	return u, nil
}

func (t *transaction) UpdateUser(ctx context.Context, user *model.User) error {
	if !t.users[user.ID] {
		return goerr.New("user must be read in the transaction before update", goerr.V(model.UserIDKey, user.ID))
	}

	updated := user.Copy()
	updated.UpdatedAt = time.Now().UTC()
	ref := t.client.Collection(t.names.users()).Doc(userDocID(user.ID))
	if err := t.tx.Set(ref, newUserDoc(updated)); err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V(model.UserIDKey, user.ID))
	}
	return nil
}
