package interfaces

import (
	"context"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// RequestRepository defines the interface for pending request data access
type RequestRepository interface {
	// Create stores a new Pending request. At most one Pending request may exist per
	// model.PendingKey; a violation fails with model.ErrDuplicatePendingRequest.
	Create(ctx context.Context, req *model.Request) (*model.Request, error)

	// Get retrieves a request by ID
	Get(ctx context.Context, id model.RequestID) (*model.Request, error)

	// HasPending reports whether a Pending request occupies key
	HasPending(ctx context.Context, key model.PendingKey) (bool, error)

	// ListByKind retrieves requests of kind ordered by submission time
	ListByKind(ctx context.Context, kind types.RequestKind) ([]*model.Request, error)
}
