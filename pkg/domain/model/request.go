package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// RequestID is a time ordered UUID (v7) identifying a request
type RequestID string

// NewRequestID generates a new RequestID
func NewRequestID() RequestID {
	return RequestID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the request ID
func (id RequestID) String() string {
	return string(id)
}

// RequestPayload is the kind specific part of a request. The implementations below are the
// complete set; switch statements over them must keep a default branch returning an error.
type RequestPayload interface {
	Kind() types.RequestKind
	// Target is the reference used for the one-pending-request-per-target rule
	Target() string
	Reason() string
	validate(requesterID string) error
}

// CompleteTaskPayload asks the leader to mark the member's task as completed
type CompleteTaskPayload struct {
	TaskKey string
}

func (p *CompleteTaskPayload) Kind() types.RequestKind { return types.RequestKindCompleteTask }
func (p *CompleteTaskPayload) Target() string          { return p.TaskKey }
func (p *CompleteTaskPayload) Reason() string          { return "" }
func (p *CompleteTaskPayload) validate(string) error   { return ValidateBusinessKey(p.TaskKey) }

// DeactivateAccountPayload asks the leader to deactivate the member's own account
type DeactivateAccountPayload struct {
	AccountID     string
	ReasonMessage string
}

func (p *DeactivateAccountPayload) Kind() types.RequestKind {
	return types.RequestKindDeactivateAccount
}
func (p *DeactivateAccountPayload) Target() string { return p.AccountID }
func (p *DeactivateAccountPayload) Reason() string { return p.ReasonMessage }
func (p *DeactivateAccountPayload) validate(requesterID string) error {
	if p.AccountID != requesterID {
		return goerr.Wrap(ErrNotTaskOwner, "members can only request deactivation of their own account",
			goerr.V(UserIDKey, requesterID), goerr.V("account_id", p.AccountID))
	}
	return nil
}

// FreezeTaskPayload asks the leader to pause the deadline clock of the member's task
type FreezeTaskPayload struct {
	TaskKey       string
	ReasonMessage string
}

func (p *FreezeTaskPayload) Kind() types.RequestKind { return types.RequestKindFreezeTask }
func (p *FreezeTaskPayload) Target() string          { return p.TaskKey }
func (p *FreezeTaskPayload) Reason() string          { return p.ReasonMessage }
func (p *FreezeTaskPayload) validate(string) error   { return ValidateBusinessKey(p.TaskKey) }

// UnfreezeTaskPayload asks the leader to resume a frozen task
type UnfreezeTaskPayload struct {
	TaskKey       string
	ReasonMessage string
}

func (p *UnfreezeTaskPayload) Kind() types.RequestKind { return types.RequestKindUnfreezeTask }
func (p *UnfreezeTaskPayload) Target() string          { return p.TaskKey }
func (p *UnfreezeTaskPayload) Reason() string          { return p.ReasonMessage }
func (p *UnfreezeTaskPayload) validate(string) error   { return ValidateBusinessKey(p.TaskKey) }

// NewPayload rebuilds a payload from its stored parts (kind, target, reason).
func NewPayload(kind types.RequestKind, target, reason string) (RequestPayload, error) {
	switch kind {
	case types.RequestKindCompleteTask:
		return &CompleteTaskPayload{TaskKey: target}, nil
	case types.RequestKindDeactivateAccount:
		return &DeactivateAccountPayload{AccountID: target, ReasonMessage: reason}, nil
	case types.RequestKindFreezeTask:
		return &FreezeTaskPayload{TaskKey: target, ReasonMessage: reason}, nil
	case types.RequestKindUnfreezeTask:
		return &UnfreezeTaskPayload{TaskKey: target, ReasonMessage: reason}, nil
	default:
		return nil, goerr.Wrap(ErrInvalidPayload, "unknown request kind", goerr.V(RequestKindKey, kind))
	}
}

// Request is a member initiated action awaiting a single resolution by a leader.
// Requester name and email are captured at submission and never re-derived.
type Request struct {
	ID                RequestID
	Kind              types.RequestKind
	RequesterID       string
	RequesterName     string
	RequesterEmail    string
	Status            types.RequestStatus
	Notes             string
	Payload           RequestPayload
	SubmittedAt       time.Time
	ResolvedBy        string
	ResolvedAt        *time.Time
	ResolutionComment string
}

// NewRequest builds a Pending request submitted by requester.
func NewRequest(requester *User, payload RequestPayload, notes string, now time.Time) (*Request, error) {
	if payload == nil {
		return nil, goerr.Wrap(ErrInvalidPayload, "payload is required")
	}
	if err := payload.validate(requester.ID); err != nil {
		return nil, err
	}

	return &Request{
		ID:             NewRequestID(),
		Kind:           payload.Kind(),
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		Status:         types.RequestStatusPending,
		Notes:          notes,
		Payload:        payload,
		SubmittedAt:    now,
	}, nil
}

// Target returns the payload target reference
func (r *Request) Target() string {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Target()
}

// Resolve moves a Pending request to its terminal state. A resolved request never changes again.
func (r *Request) Resolve(decision types.Decision, resolverID, comment string, now time.Time) error {
	if !decision.IsValid() {
		return goerr.Wrap(ErrInvalidArgument, "invalid decision", goerr.V("decision", decision))
	}
	if r.Status != types.RequestStatusPending {
		return goerr.Wrap(ErrRequestAlreadyResolved, "request cannot be resolved twice",
			goerr.V(RequestIDKey, r.ID), goerr.V(StatusKey, r.Status))
	}

	r.Status = decision.Status()
	r.ResolvedBy = resolverID
	r.ResolvedAt = &now
	r.ResolutionComment = comment
	return nil
}

// Copy returns a deep copy of the request. Payloads are immutable values and are shared.
func (r *Request) Copy() *Request {
	c := *r
	if r.ResolvedAt != nil {
		v := *r.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

// PendingKey identifies the (kind, requester, target) slot of the uniqueness rule
type PendingKey struct {
	Kind        types.RequestKind
	RequesterID string
	Target      string
}

// PendingKey returns the uniqueness slot of r
func (r *Request) PendingKey() PendingKey {
	return PendingKey{Kind: r.Kind, RequesterID: r.RequesterID, Target: r.Target()}
}

// String renders the key for use as a document or lock identifier
func (k PendingKey) String() string {
	return string(k.Kind) + ":" + k.RequesterID + ":" + k.Target
}
