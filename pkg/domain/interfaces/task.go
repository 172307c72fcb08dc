package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// TaskRepository defines the interface for Task data access
type TaskRepository interface {
	// Create stores a new task with auto-generated ID. Business keys are unique:
	// a second task with the same key fails with model.ErrDuplicateTaskKey.
	Create(ctx context.Context, task *model.Task) (*model.Task, error)

	// Get retrieves a task by ID
	Get(ctx context.Context, id int64) (*model.Task, error)

	// GetByKey retrieves a task by business key
	GetByKey(ctx context.Context, key string) (*model.Task, error)

	// List retrieves all tasks ordered by ID
	List(ctx context.Context) ([]*model.Task, error)

	// ListOverdue retrieves Opened tasks whose deadline is before now
	ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error)

	// MarkDelayed flips the task to Delayed only if it is still Opened and past its deadline.
	// It reports whether the task changed.
	MarkDelayed(ctx context.Context, id int64, now time.Time) (bool, error)
}
