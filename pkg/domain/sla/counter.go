package sla

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// Clock is the time related view of a task needed to compute its counter.
type Clock struct {
	Status        types.TaskStatus
	Deadline      time.Time
	FrozenCounter *time.Duration
}

// RemainingOrElapsed returns the time left until the deadline. A negative value means the
// task is overdue by its absolute value. Frozen tasks return their snapshot verbatim and
// completed tasks return zero.
func RemainingOrElapsed(c Clock, now time.Time) time.Duration {
	switch c.Status {
	case types.TaskStatusFrozen:
		if c.FrozenCounter != nil {
			return *c.FrozenCounter
		}
		return 0
	case types.TaskStatusCompleted:
		return 0
	default:
		return c.Deadline.Sub(now)
	}
}

// Freeze returns the counter to persist as the frozen snapshot. It does not change status.
func Freeze(c Clock, now time.Time) (time.Duration, error) {
	if !c.Status.IsLive() {
		return 0, goerr.Wrap(ErrClockNotRunning, "cannot freeze task", goerr.V("status", c.Status))
	}
	return RemainingOrElapsed(c, now), nil
}

// Resume returns the live deadline that reproduces snapshot at now.
func Resume(snapshot time.Duration, now time.Time) time.Time {
	return now.Add(snapshot)
}

// IsOverdue reports whether a live clock has passed its deadline
func IsOverdue(c Clock, now time.Time) bool {
	return c.Status.IsLive() && now.After(c.Deadline)
}
