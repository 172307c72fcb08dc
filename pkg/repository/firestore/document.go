package firestore

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// taskDoc is the stored form of model.Task. The frozen counter is kept as text in the
// D.HH:MM:SS form so that it stays readable in the console.
type taskDoc struct {
	ID            int64      `firestore:"id"`
	Key           string     `firestore:"key"`
	Title         string     `firestore:"title"`
	Priority      string     `firestore:"priority"`
	Status        string     `firestore:"status"`
	OwnerID       string     `firestore:"owner_id"`
	CreatedAt     time.Time  `firestore:"created_at"`
	Deadline      time.Time  `firestore:"deadline"`
	PausedFor     int64      `firestore:"paused_for"`
	CompletedAt   *time.Time `firestore:"completed_at"`
	FrozenAt      *time.Time `firestore:"frozen_at"`
	FrozenCounter *string    `firestore:"frozen_counter"`
	FreezeReason  string     `firestore:"freeze_reason"`
	Notes         string     `firestore:"notes"`
	UpdatedAt     time.Time  `firestore:"updated_at"`
}

func newTaskDoc(t *model.Task) *taskDoc {
	doc := &taskDoc{
		ID:           t.ID,
		Key:          t.Key,
		Title:        t.Title,
		Priority:     t.Priority.String(),
		Status:       t.Status.String(),
		OwnerID:      t.OwnerID,
		CreatedAt:    t.CreatedAt,
		Deadline:     t.Deadline,
		PausedFor:    int64(t.PausedFor),
		CompletedAt:  t.CompletedAt,
		FrozenAt:     t.FrozenAt,
		FreezeReason: t.FreezeReason,
		Notes:        t.Notes,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.FrozenCounter != nil {
		s := sla.FormatCounter(*t.FrozenCounter)
		doc.FrozenCounter = &s
	}
	return doc
}

func (d *taskDoc) toModel() (*model.Task, error) {
	status, err := types.ParseTaskStatus(d.Status)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode task status", goerr.V(model.TaskIDKey, d.ID))
	}

	t := &model.Task{
		ID:           d.ID,
		Key:          d.Key,
		Title:        d.Title,
		Priority:     types.Priority(d.Priority),
		Status:       status,
		OwnerID:      d.OwnerID,
		CreatedAt:    d.CreatedAt,
		Deadline:     d.Deadline,
		PausedFor:    time.Duration(d.PausedFor),
		CompletedAt:  d.CompletedAt,
		FrozenAt:     d.FrozenAt,
		FreezeReason: d.FreezeReason,
		Notes:        d.Notes,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.FrozenCounter != nil {
		counter, err := sla.ParseCounter(*d.FrozenCounter)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode frozen counter", goerr.V(model.TaskIDKey, d.ID))
		}
		t.FrozenCounter = &counter
	}
	return t, nil
}

type taskKeyDoc struct {
	TaskID int64 `firestore:"task_id"`
}

// requestDoc flattens the payload into kind, target and reason.
type requestDoc struct {
	ID                string     `firestore:"id"`
	Kind              string     `firestore:"kind"`
	RequesterID       string     `firestore:"requester_id"`
	RequesterName     string     `firestore:"requester_name"`
	RequesterEmail    string     `firestore:"requester_email"`
	Status            string     `firestore:"status"`
	Notes             string     `firestore:"notes"`
	Target            string     `firestore:"target"`
	Reason            string     `firestore:"reason"`
	SubmittedAt       time.Time  `firestore:"submitted_at"`
	ResolvedBy        string     `firestore:"resolved_by"`
	ResolvedAt        *time.Time `firestore:"resolved_at"`
	ResolutionComment string     `firestore:"resolution_comment"`
}

func newRequestDoc(r *model.Request) *requestDoc {
	doc := &requestDoc{
		ID:                r.ID.String(),
		Kind:              r.Kind.String(),
		RequesterID:       r.RequesterID,
		RequesterName:     r.RequesterName,
		RequesterEmail:    r.RequesterEmail,
		Status:            r.Status.String(),
		Notes:             r.Notes,
		SubmittedAt:       r.SubmittedAt,
		ResolvedBy:        r.ResolvedBy,
		ResolvedAt:        r.ResolvedAt,
		ResolutionComment: r.ResolutionComment,
	}
	if r.Payload != nil {
		doc.Target = r.Payload.Target()
		doc.Reason = r.Payload.Reason()
	}
	return doc
}

func (d *requestDoc) toModel() (*model.Request, error) {
	kind := types.RequestKind(d.Kind)
	payload, err := model.NewPayload(kind, d.Target, d.Reason)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode request payload", goerr.V(model.RequestIDKey, d.ID))
	}
	status, err := types.ParseRequestStatus(d.Status)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode request status", goerr.V(model.RequestIDKey, d.ID))
	}

	return &model.Request{
		ID:                model.RequestID(d.ID),
		Kind:              kind,
		RequesterID:       d.RequesterID,
		RequesterName:     d.RequesterName,
		RequesterEmail:    d.RequesterEmail,
		Status:            status,
		Notes:             d.Notes,
		Payload:           payload,
		SubmittedAt:       d.SubmittedAt,
		ResolvedBy:        d.ResolvedBy,
		ResolvedAt:        d.ResolvedAt,
		ResolutionComment: d.ResolutionComment,
	}, nil
}

type pendingDoc struct {
	RequestID string `firestore:"request_id"`
}

type userDoc struct {
	ID        string    `firestore:"id"`
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	LeaderID  string    `firestore:"leader_id"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func newUserDoc(u *model.User) *userDoc {
	return &userDoc{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		LeaderID:  u.LeaderID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Role:      types.Role(d.Role),
		LeaderID:  d.LeaderID,
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
