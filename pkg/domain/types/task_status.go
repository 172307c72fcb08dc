package types

import "fmt"

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusOpened    TaskStatus = "OPENED"
	TaskStatusDelayed   TaskStatus = "DELAYED"
	TaskStatusFrozen    TaskStatus = "FROZEN"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpened,
		TaskStatusDelayed,
		TaskStatusFrozen,
		TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// IsLive reports whether the deadline clock is running (Opened or Delayed)
func (s TaskStatus) IsLive() bool {
	return s == TaskStatusOpened || s == TaskStatusDelayed
}

// IsTerminal reports whether no further transition is allowed
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus parses a string into a TaskStatus
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}
