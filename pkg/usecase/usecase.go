package usecase

import (
	"time"

	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/utils/async"
)

type UseCases struct {
	repo       interfaces.Repository
	policy     sla.Policy
	notifier   interfaces.Notifier
	recomputer interfaces.Recomputer
	audit      interfaces.AuditSink
	group      *async.Group
	now        func() time.Time

	Task     *TaskUseCase
	Request  *RequestUseCase
	Workflow *Workflow
	Dispatch *Dispatcher
}

type Option func(*UseCases)

func WithPolicy(policy sla.Policy) Option {
	return func(uc *UseCases) {
		uc.policy = policy
	}
}

func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

func WithRecomputer(recomputer interfaces.Recomputer) Option {
	return func(uc *UseCases) {
		uc.recomputer = recomputer
	}
}

func WithAuditSink(audit interfaces.AuditSink) Option {
	return func(uc *UseCases) {
		uc.audit = audit
	}
}

// WithAsyncGroup sets the group running side effects. Callers that need to wait for them,
// such as tests and graceful shutdown, pass their own group.
func WithAsyncGroup(group *async.Group) Option {
	return func(uc *UseCases) {
		uc.group = group
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		policy: sla.DefaultPolicy(),
		group:  &async.Group{},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.now = storageClock(uc.now)

	uc.Dispatch = NewDispatcher(uc.group, uc.notifier, uc.recomputer, uc.audit)
	uc.Workflow = NewWorkflow(uc.Dispatch)
	uc.Task = NewTaskUseCase(repo, uc.policy, uc.Dispatch, uc.now)
	uc.Request = NewRequestUseCase(repo, uc.Workflow, uc.Dispatch, uc.now)

	return uc
}

// storageClock truncates now to the microsecond precision of the coarsest backend
// (postgres TIMESTAMPTZ) so every repository round-trips the same instant.
func storageClock(now func() time.Time) func() time.Time {
	return func() time.Time {
		return now().Truncate(time.Microsecond)
	}
}

// Wait blocks until every side effect dispatched so far has finished.
func (uc *UseCases) Wait() {
	uc.group.Wait()
}
