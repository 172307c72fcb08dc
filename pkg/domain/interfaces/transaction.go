package interfaces

import (
	"context"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// Transaction is the read-modify-write scope handed to Repository.RunTransaction.
// Callers must perform every read before the first write.
type Transaction interface {
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	GetTaskByKey(ctx context.Context, key string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error

	GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error)
	// UpdateRequest replaces the request. Moving it out of Pending releases its PendingKey.
	UpdateRequest(ctx context.Context, req *model.Request) error

	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}
