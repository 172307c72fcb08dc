package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

const requestColumns = `id, kind, requester_id, requester_name, requester_email, status, notes, target, reason,
	submitted_at, resolved_by, resolved_at, resolution_comment`

type requestRepository struct {
	db *pgxpool.Pool
}

// Create relies on the partial unique index over pending rows for the one-pending rule.
func (r *requestRepository) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO requests (`+requestColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID.String(), req.Kind.String(), req.RequesterID, req.RequesterName, req.RequesterEmail,
		req.Status.String(), req.Notes, req.Target(), payloadReason(req),
		req.SubmittedAt, req.ResolvedBy, req.ResolvedAt, req.ResolutionComment)
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			if pgErr.ConstraintName == pendingSlotIndex {
				key := req.PendingKey()
				return nil, goerr.Wrap(model.ErrDuplicatePendingRequest, "pending request already exists",
					goerr.V(model.RequestKindKey, key.Kind),
					goerr.V(model.UserIDKey, key.RequesterID),
					goerr.V("target", key.Target))
			}
			return nil, goerr.Wrap(model.ErrConflict, "request ID already exists", goerr.V(model.RequestIDKey, req.ID))
		}
		return nil, goerr.Wrap(err, "failed to insert request", goerr.V(model.RequestIDKey, req.ID))
	}

	return req.Copy(), nil
}

func (r *requestRepository) Get(ctx context.Context, id model.RequestID) (*model.Request, error) {
	return getRequest(ctx, r.db, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

func (r *requestRepository) HasPending(ctx context.Context, key model.PendingKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE kind = $1 AND requester_id = $2 AND target = $3 AND status = $4)`,
		key.Kind.String(), key.RequesterID, key.Target, types.RequestStatusPending.String(),
	).Scan(&exists)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check pending request", goerr.V("lock", key.String()))
	}
	return exists, nil
}

func (r *requestRepository) ListByKind(ctx context.Context, kind types.RequestKind) ([]*model.Request, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE kind = $1 ORDER BY submitted_at, id`, kind.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query requests", goerr.V(model.RequestKindKey, kind))
	}
	defer rows.Close()

	requests := make([]*model.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate requests")
	}
	return requests, nil
}

func getRequest(ctx context.Context, q queryer, query string, id model.RequestID) (*model.Request, error) {
	req, err := scanRequest(q.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrRequestNotFound, "request not found", goerr.V(model.RequestIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get request", goerr.V(model.RequestIDKey, id))
	}
	return req, nil
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	var (
		req            model.Request
		id, kind, stat string
		target, reason string
	)
	if err := row.Scan(&id, &kind, &req.RequesterID, &req.RequesterName, &req.RequesterEmail, &stat,
		&req.Notes, &target, &reason, &req.SubmittedAt, &req.ResolvedBy, &req.ResolvedAt, &req.ResolutionComment); err != nil {
		return nil, err
	}

	req.ID = model.RequestID(id)
	req.Kind = types.RequestKind(kind)
	status, err := types.ParseRequestStatus(stat)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode request status", goerr.V(model.RequestIDKey, id))
	}
	req.Status = status
	payload, err := model.NewPayload(req.Kind, target, reason)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode request payload", goerr.V(model.RequestIDKey, id))
	}
	req.Payload = payload
	return &req, nil
}

func payloadReason(req *model.Request) string {
	if req.Payload == nil {
		return ""
	}
	return req.Payload.Reason()
}
