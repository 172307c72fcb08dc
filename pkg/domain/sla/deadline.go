// Package sla computes service level deadlines and the remaining/elapsed counters of tasks.
// Every function is pure: the current instant is always passed in by the caller.
package sla

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

var (
	ErrUnknownPriority = goerr.New("unknown priority")
	ErrClockNotRunning = goerr.New("deadline clock is not running")
)

// Policy maps each priority to the number of working days allowed to finish a task.
// Location is the business timezone deciding which calendar days are weekends; nil means UTC.
type Policy struct {
	WorkingDays map[types.Priority]int
	Location    *time.Location
}

// DefaultPolicy returns Urgent=2, Regular=10, Important=10 working days in UTC.
func DefaultPolicy() Policy {
	return Policy{
		WorkingDays: map[types.Priority]int{
			types.PriorityUrgent:    2,
			types.PriorityRegular:   10,
			types.PriorityImportant: 10,
		},
		Location: time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// WorkingDaysFor returns the working day budget of priority
func (p Policy) WorkingDaysFor(priority types.Priority) (int, error) {
	days, ok := p.WorkingDays[priority]
	if !ok || !priority.IsValid() {
		return 0, goerr.Wrap(ErrUnknownPriority, "no working day budget for priority", goerr.V("priority", priority))
	}
	return days, nil
}

// ComputeDeadline adds the priority's working days to createdAt, keeping its time of day in
// the business timezone. The result depends only on the instant of createdAt, not on the
// location it carries; it is returned in createdAt's location.
func (p Policy) ComputeDeadline(createdAt time.Time, priority types.Priority) (time.Time, error) {
	days, err := p.WorkingDaysFor(priority)
	if err != nil {
		return time.Time{}, err
	}
	return AddWorkingDays(createdAt.In(p.location()), days).In(createdAt.Location()), nil
}

// ComputeDeadline uses DefaultPolicy.
func ComputeDeadline(createdAt time.Time, priority types.Priority) (time.Time, error) {
	return DefaultPolicy().ComputeDeadline(createdAt, priority)
}

// AddWorkingDays walks forward one calendar day at a time and counts only Monday to
// Friday until n working days have been consumed. No holiday calendar is applied.
func AddWorkingDays(start time.Time, n int) time.Time {
	current := start
	for n > 0 {
		current = current.AddDate(0, 0, 1)
		if IsWorkingDay(current) {
			n--
		}
	}
	return current
}

// IsWorkingDay reports whether t falls on Monday to Friday in its own location
func IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
