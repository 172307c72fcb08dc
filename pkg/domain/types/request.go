package types

import "fmt"

// RequestKind identifies the variant of a pending request. The set is closed.
type RequestKind string

const (
	RequestKindCompleteTask      RequestKind = "COMPLETE_TASK"
	RequestKindDeactivateAccount RequestKind = "DEACTIVATE_ACCOUNT"
	RequestKindFreezeTask        RequestKind = "FREEZE_TASK"
	RequestKindUnfreezeTask      RequestKind = "UNFREEZE_TASK"
)

// AllRequestKinds returns all valid request kinds
func AllRequestKinds() []RequestKind {
	return []RequestKind{
		RequestKindCompleteTask,
		RequestKindDeactivateAccount,
		RequestKindFreezeTask,
		RequestKindUnfreezeTask,
	}
}

// IsValid checks if the request kind is valid
func (k RequestKind) IsValid() bool {
	switch k {
	case RequestKindCompleteTask,
		RequestKindDeactivateAccount,
		RequestKindFreezeTask,
		RequestKindUnfreezeTask:
		return true
	default:
		return false
	}
}

// TargetsTask reports whether the kind carries a task business key as its target
func (k RequestKind) TargetsTask() bool {
	switch k {
	case RequestKindCompleteTask, RequestKindFreezeTask, RequestKindUnfreezeTask:
		return true
	default:
		return false
	}
}

// String returns the string representation of the request kind
func (k RequestKind) String() string {
	return string(k)
}

// ParseRequestKind parses a string into a RequestKind
func ParseRequestKind(s string) (RequestKind, error) {
	kind := RequestKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid request kind: %s", s)
	}
	return kind, nil
}

// RequestStatus represents the resolution state of a request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// IsValid checks if the request status is valid
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending,
		RequestStatusApproved,
		RequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsResolved reports whether the request reached a terminal state
func (s RequestStatus) IsResolved() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// String returns the string representation of the request status
func (s RequestStatus) String() string {
	return string(s)
}

// ParseRequestStatus parses a string into a RequestStatus
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid request status: %s", s)
	}
	return status, nil
}

// Decision is the resolver's verdict on a pending request
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// IsValid checks if the decision is valid
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status returns the request status a decision resolves to
func (d Decision) Status() RequestStatus {
	if d == DecisionApprove {
		return RequestStatusApproved
	}
	return RequestStatusRejected
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}
