package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type requestRepository struct {
	client *firestore.Client
	names  *collections
}

// Create stores a request and, while it is pending, a lock document keyed by its
// (kind, requester, target) slot. Both writes commit together or not at all.
func (r *requestRepository) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	reqRef := r.client.Collection(r.names.requests()).Doc(req.ID.String())
	key := req.PendingKey()
	lockRef := r.client.Collection(r.names.pending()).Doc(pendingLockID(key))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if req.Status == types.RequestStatusPending {
			if _, err := tx.Get(lockRef); err == nil {
				return goerr.Wrap(model.ErrDuplicatePendingRequest, "pending request already exists",
					goerr.V(model.RequestKindKey, key.Kind),
					goerr.V(model.UserIDKey, key.RequesterID),
					goerr.V("target", key.Target))
			} else if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to check pending lock", goerr.V("lock", key.String()))
			}

			if err := tx.Create(lockRef, &pendingDoc{RequestID: req.ID.String()}); err != nil {
				return goerr.Wrap(err, "failed to create pending lock", goerr.V("lock", key.String()))
			}
		}

		if err := tx.Create(reqRef, newRequestDoc(req)); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return goerr.Wrap(model.ErrConflict, "request ID already exists", goerr.V(model.RequestIDKey, req.ID))
			}
			return goerr.Wrap(err, "failed to create request", goerr.V(model.RequestIDKey, req.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req.Copy(), nil
}

func (r *requestRepository) Get(ctx context.Context, id model.RequestID) (*model.Request, error) {
	docSnap, err := r.client.Collection(r.names.requests()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get request", goerr.V(model.RequestIDKey, id))
	}
	return decodeRequest(docSnap)
}

func (r *requestRepository) HasPending(ctx context.Context, key model.PendingKey) (bool, error) {
	_, err := r.client.Collection(r.names.pending()).Doc(pendingLockID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get pending lock", goerr.V("lock", key.String()))
	}
	return true, nil
}

// ListByKind needs the (kind, submitted_at) composite index created by the migrate command.
func (r *requestRepository) ListByKind(ctx context.Context, kind types.RequestKind) ([]*model.Request, error) {
	iter := r.client.Collection(r.names.requests()).
		Where("kind", "==", kind.String()).
		OrderBy("submitted_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	requests := make([]*model.Request, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate requests", goerr.V(model.RequestKindKey, kind))
		}

		req, err := decodeRequest(docSnap)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func decodeRequest(docSnap *firestore.DocumentSnapshot) (*model.Request, error) {
	var doc requestDoc
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode request", goerr.V("doc_id", docSnap.Ref.ID))
	}
	return doc.toModel()
}
