package interfaces

import (
	"context"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// Notifier delivers a notification to its recipient. Failures are reported to the caller,
// which treats delivery as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// Recomputer triggers the external recomputation of a periodic performance aggregate
type Recomputer interface {
	RecomputePeriodAggregate(ctx context.Context, subjectID, periodKey string) error
}

// Presence reports whether a user currently holds a live in-app connection
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// AuditSink archives resolved requests
type AuditSink interface {
	Record(ctx context.Context, req *model.Request) error
}
