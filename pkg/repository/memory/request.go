package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

type requestRepository struct {
	s *store
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.requests[req.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "request ID already exists", goerr.V(model.RequestIDKey, req.ID))
	}

	key := req.PendingKey()
	if req.Status == types.RequestStatusPending {
		if _, exists := r.s.pending[key]; exists {
			return nil, goerr.Wrap(model.ErrDuplicatePendingRequest, "pending request already exists",
				goerr.V(model.RequestKindKey, key.Kind),
				goerr.V(model.UserIDKey, key.RequesterID),
				goerr.V("target", key.Target))
		}
		r.s.pending[key] = req.ID
	}

	created := req.Copy()
	r.s.requests[created.ID] = created
	return created.Copy(), nil
}

func (r *requestRepository) Get(ctx context.Context, id model.RequestID) (*model.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.getRequest(id)
}

func (r *requestRepository) HasPending(ctx context.Context, key model.PendingKey) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, exists := r.s.pending[key]
	return exists, nil
}

func (r *requestRepository) ListByKind(ctx context.Context, kind types.RequestKind) ([]*model.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	requests := make([]*model.Request, 0)
	for _, req := range r.s.requests {
		if req.Kind == kind {
			requests = append(requests, req.Copy())
		}
	}
	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].SubmittedAt.Equal(requests[j].SubmittedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].SubmittedAt.Before(requests[j].SubmittedAt)
	})

	return requests, nil
}

func (s *store) getRequest(id model.RequestID) (*model.Request, error) {
	req, exists := s.requests[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, id))
	}
	return req.Copy(), nil
}
