package model

import (
	"regexp"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

var businessKeyPattern = regexp.MustCompile(`^\d{5}$`)

// ValidateBusinessKey checks the five digit case number format
func ValidateBusinessKey(key string) error {
	if !businessKeyPattern.MatchString(key) {
		return goerr.Wrap(ErrInvalidBusinessKey, "invalid business key", goerr.V(TaskKeyKey, key))
	}
	return nil
}

// Task is a work item tracked against a service level deadline.
//
// Deadline is derived: ComputeDeadline(CreatedAt, Priority) shifted by PausedFor, the total
// time the clock has spent frozen. FrozenCounter is set if and only if Status is Frozen.
type Task struct {
	ID            int64
	Key           string
	Title         string
	Priority      types.Priority
	Status        types.TaskStatus
	OwnerID       string
	CreatedAt     time.Time
	Deadline      time.Time
	PausedFor     time.Duration
	CompletedAt   *time.Time
	FrozenAt      *time.Time
	FrozenCounter *time.Duration
	FreezeReason  string
	Notes         string
	UpdatedAt     time.Time
}

// NewTask builds an Opened task whose deadline is computed from now and priority.
func NewTask(policy sla.Policy, key, title string, priority types.Priority, ownerID string, now time.Time) (*Task, error) {
	if err := ValidateBusinessKey(key); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, goerr.Wrap(ErrInvalidArgument, "task owner is required", goerr.V(TaskKeyKey, key))
	}
	deadline, err := policy.ComputeDeadline(now, priority)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidArgument, "cannot compute deadline", goerr.V(TaskKeyKey, key), goerr.V("cause", err.Error()))
	}

	return &Task{
		Key:       key,
		Title:     title,
		Priority:  priority,
		Status:    types.TaskStatusOpened,
		OwnerID:   ownerID,
		CreatedAt: now,
		Deadline:  deadline,
	}, nil
}

// Clock returns the view of the task consumed by the sla package
func (t *Task) Clock() sla.Clock {
	return sla.Clock{
		Status:        t.Status,
		Deadline:      t.Deadline,
		FrozenCounter: t.FrozenCounter,
	}
}

// Counter returns the remaining (positive) or overdue (negative) time at now
func (t *Task) Counter(now time.Time) time.Duration {
	return sla.RemainingOrElapsed(t.Clock(), now)
}

// EffectiveStatus derives Delayed for an Opened task past its deadline without mutating it.
func (t *Task) EffectiveStatus(now time.Time) types.TaskStatus {
	if t.Status == types.TaskStatusOpened && sla.IsOverdue(t.Clock(), now) {
		return types.TaskStatusDelayed
	}
	return t.Status
}

// MarkDelayed materializes the Opened -> Delayed transition. It reports whether the task
// changed and is safe to call repeatedly.
func (t *Task) MarkDelayed(now time.Time) bool {
	if t.EffectiveStatus(now) == t.Status {
		return false
	}
	t.Status = types.TaskStatusDelayed
	return true
}

func (t *Task) liveStatus(now time.Time) types.TaskStatus {
	if now.After(t.Deadline) {
		return types.TaskStatusDelayed
	}
	return types.TaskStatusOpened
}

func (t *Task) transitionError(target types.TaskStatus) error {
	base := ErrInvalidTransition
	if t.Status.IsTerminal() {
		base = ErrTaskCompleted
	}
	return goerr.Wrap(base, "transition not allowed",
		goerr.V(TaskKeyKey, t.Key),
		goerr.V(StatusKey, t.Status),
		goerr.V("target", target))
}

// Freeze pauses the deadline clock and captures its counter.
func (t *Task) Freeze(now time.Time, reason string) error {
	snapshot, err := sla.Freeze(t.Clock(), now)
	if err != nil {
		return t.transitionError(types.TaskStatusFrozen)
	}

	t.Status = types.TaskStatusFrozen
	t.FrozenAt = &now
	t.FrozenCounter = &snapshot
	t.FreezeReason = reason
	return nil
}

// Resume restarts the clock from the captured counter.
func (t *Task) Resume(now time.Time) error {
	if t.Status != types.TaskStatusFrozen || t.FrozenCounter == nil {
		return t.transitionError(types.TaskStatusOpened)
	}

	deadline := sla.Resume(*t.FrozenCounter, now)
	t.PausedFor += deadline.Sub(t.Deadline)
	t.Deadline = deadline
	t.FrozenAt = nil
	t.FrozenCounter = nil
	t.FreezeReason = ""
	t.Status = t.liveStatus(now)
	return nil
}

// Complete is the terminal transition, driven by an approved completion request.
func (t *Task) Complete(now time.Time, notes string) error {
	if !t.Status.IsLive() {
		return t.transitionError(types.TaskStatusCompleted)
	}

	t.Status = types.TaskStatusCompleted
	t.CompletedAt = &now
	t.Notes = notes
	return nil
}

// ChangePriority recomputes the deadline for a new priority before completion.
func (t *Task) ChangePriority(policy sla.Policy, priority types.Priority, now time.Time) error {
	if !t.Status.IsLive() {
		return t.transitionError(t.Status)
	}

	base, err := policy.ComputeDeadline(t.CreatedAt, priority)
	if err != nil {
		return goerr.Wrap(ErrInvalidArgument, "cannot compute deadline",
			goerr.V(TaskKeyKey, t.Key), goerr.V("priority", priority))
	}

	t.Priority = priority
	t.Deadline = base.Add(t.PausedFor)
	t.Status = t.liveStatus(now)
	return nil
}

// Validate checks the structural invariants of a stored task
func (t *Task) Validate() error {
	if err := ValidateBusinessKey(t.Key); err != nil {
		return err
	}
	if !t.Status.IsValid() {
		return goerr.Wrap(ErrInvalidArgument, "invalid task status", goerr.V(StatusKey, t.Status))
	}
	if !t.Priority.IsValid() {
		return goerr.Wrap(ErrInvalidArgument, "invalid task priority", goerr.V("priority", t.Priority))
	}
	if (t.Status == types.TaskStatusFrozen) != (t.FrozenCounter != nil) {
		return goerr.Wrap(ErrInvalidArgument, "frozen counter must be present exactly when frozen",
			goerr.V(TaskKeyKey, t.Key), goerr.V(StatusKey, t.Status))
	}
	if (t.Status == types.TaskStatusCompleted) != (t.CompletedAt != nil) {
		return goerr.Wrap(ErrInvalidArgument, "completion time must be present exactly when completed",
			goerr.V(TaskKeyKey, t.Key), goerr.V(StatusKey, t.Status))
	}
	return nil
}

// Copy returns a deep copy of the task
func (t *Task) Copy() *Task {
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.FrozenAt != nil {
		v := *t.FrozenAt
		c.FrozenAt = &v
	}
	if t.FrozenCounter != nil {
		v := *t.FrozenCounter
		c.FrozenCounter = &v
	}
	return &c
}
