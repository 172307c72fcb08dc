package interfaces

import (
	"context"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// UserRepository defines the interface for account data access
type UserRepository interface {
	// Put creates or replaces a user
	Put(ctx context.Context, user *model.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*model.User, error)

	// List retrieves all users ordered by ID
	List(ctx context.Context) ([]*model.User, error)
}
