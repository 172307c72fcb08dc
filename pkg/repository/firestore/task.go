package firestore

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const taskCounterDoc = "task_counter"

type taskRepository struct {
	client *firestore.Client
	names  *collections
}

func taskDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Create assigns the next task ID and claims the business key in one transaction.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	counterRef := r.client.Collection(r.names.counters()).Doc(taskCounterDoc)
	keyRef := r.client.Collection(r.names.taskKeys()).Doc(task.Key)

	var created *model.Task
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		nextID := int64(1)
		counter, err := tx.Get(counterRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get counter")
		}
		if err == nil {
			value, err := counter.DataAt("value")
			if err != nil {
				return goerr.Wrap(err, "failed to get counter value")
			}
			current, ok := value.(int64)
			if !ok {
				return goerr.New("counter value is not of type int64", goerr.V("value", value))
			}
			nextID = current + 1
		}

		if _, err := tx.Get(keyRef); err == nil {
			return goerr.Wrap(model.ErrDuplicateTaskKey, "task key already used", goerr.V(model.TaskKeyKey, task.Key))
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check task key", goerr.V(model.TaskKeyKey, task.Key))
		}

		created = task.Copy()
		created.ID = nextID
		created.UpdatedAt = time.Now().UTC()

		if err := tx.Set(counterRef, map[string]interface{}{"value": nextID}); err != nil {
			return goerr.Wrap(err, "failed to update counter")
		}
		if err := tx.Create(keyRef, &taskKeyDoc{TaskID: nextID}); err != nil {
			return goerr.Wrap(err, "failed to claim task key", goerr.V(model.TaskKeyKey, task.Key))
		}
		taskRef := r.client.Collection(r.names.tasks()).Doc(taskDocID(nextID))
		if err := tx.Create(taskRef, newTaskDoc(created)); err != nil {
			return goerr.Wrap(err, "failed to create task", goerr.V(model.TaskIDKey, nextID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *taskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	docSnap, err := r.client.Collection(r.names.tasks()).Doc(taskDocID(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(model.TaskIDKey, id))
	}
	return decodeTask(docSnap)
}

func (r *taskRepository) GetByKey(ctx context.Context, key string) (*model.Task, error) {
	keySnap, err := r.client.Collection(r.names.taskKeys()).Doc(key).Get(ctx)
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
	return r.Get(ctx, ref.TaskID)
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	return r.query(ctx, r.client.Collection(r.names.tasks()).OrderBy("id", firestore.Asc))
}

// ListOverdue needs the (status, deadline) composite index created by the migrate command.
func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error) {
	q := r.client.Collection(r.names.tasks()).
		Where("status", "==", types.TaskStatusOpened.String()).
		Where("deadline", "<", now)
	return r.query(ctx, q)
}

func (r *taskRepository) MarkDelayed(ctx context.Context, id int64, now time.Time) (bool, error) {
	ref := r.client.Collection(r.names.tasks()).Doc(taskDocID(id))

	var changed bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrTaskNotFound, "task not found", goerr.V(model.TaskIDKey, id))
			}
			return goerr.Wrap(err, "failed to get task", goerr.V(model.TaskIDKey, id))
		}
		task, err := decodeTask(docSnap)
		if err != nil {
			return err
		}
		if !task.MarkDelayed(now) {
			return nil
		}
		changed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: task.Status.String()},
			{Path: "updated_at", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *taskRepository) query(ctx context.Context, q firestore.Query) ([]*model.Task, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	tasks := make([]*model.Task, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tasks")
		}

		task, err := decodeTask(docSnap)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func decodeTask(docSnap *firestore.DocumentSnapshot) (*model.Task, error) {
	var doc taskDoc
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("doc_id", docSnap.Ref.ID))
	}
	return doc.toModel()
}
