package types

import "fmt"

// Priority represents the service level class of a task
type Priority string

const (
	PriorityUrgent    Priority = "URGENT"
	PriorityRegular   Priority = "REGULAR"
	PriorityImportant Priority = "IMPORTANT"
)

// AllPriorities returns all valid priorities
func AllPriorities() []Priority {
	return []Priority{
		PriorityUrgent,
		PriorityRegular,
		PriorityImportant,
	}
}

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent,
		PriorityRegular,
		PriorityImportant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses a string into a Priority
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}
