package interfaces

import (
	"context"
)

// Repository defines the interface for data persistence
type Repository interface {
	Task() TaskRepository
	Request() RequestRepository
	User() UserRepository

	// RunTransaction executes fn atomically. Reads inside fn observe a consistent snapshot and
	// writes are committed only when fn returns nil. Implementations may retry fn on contention,
	// so fn must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	Close() error
}
