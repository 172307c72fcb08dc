package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/usecase"
)

type requestResponse struct {
	ID                model.RequestID     `json:"id"`
	Kind              types.RequestKind   `json:"kind"`
	Status            types.RequestStatus `json:"status"`
	RequesterID       string              `json:"requester_id"`
	RequesterName     string              `json:"requester_name"`
	RequesterEmail    string              `json:"requester_email"`
	Target            string              `json:"target"`
	Reason            string              `json:"reason,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	SubmittedAt       time.Time           `json:"submitted_at"`
	ResolvedBy        string              `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
	ResolutionComment string              `json:"resolution_comment,omitempty"`
}

func newRequestResponse(req *model.Request) *requestResponse {
	resp := &requestResponse{
		ID:                req.ID,
		Kind:              req.Kind,
		Status:            req.Status,
		RequesterID:       req.RequesterID,
		RequesterName:     req.RequesterName,
		RequesterEmail:    req.RequesterEmail,
		Target:            req.Target(),
		Notes:             req.Notes,
		SubmittedAt:       req.SubmittedAt,
		ResolvedBy:        req.ResolvedBy,
		ResolvedAt:        req.ResolvedAt,
		ResolutionComment: req.ResolutionComment,
	}
	if req.Payload != nil {
		resp.Reason = req.Payload.Reason()
	}
	return resp
}

// requestKind accepts the kind in URL form, e.g. "complete-task" for COMPLETE_TASK
func requestKind(r *http.Request) (types.RequestKind, error) {
	raw := chi.URLParam(r, "kind")
	kind, err := types.ParseRequestKind(strings.ToUpper(strings.ReplaceAll(raw, "-", "_")))
	if err != nil {
		return "", goerr.Wrap(model.ErrInvalidArgument, "unknown request kind", goerr.V(model.RequestKindKey, raw))
	}
	return kind, nil
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	kind, err := requestKind(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var input usecase.SubmitInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	req, err := s.uc.Request.Submit(r.Context(), kind, input)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newRequestResponse(req))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Requests []*requestResponse `json:"requests"`
	}

	kind, err := requestKind(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	reqs, err := s.uc.Request.List(r.Context(), kind)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := response{Requests: make([]*requestResponse, len(reqs))}
	for i, req := range reqs {
		resp.Requests[i] = newRequestResponse(req)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.uc.Request.Get(r.Context(), model.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newRequestResponse(req))
}

const (
	approve = types.DecisionApprove
	reject  = types.DecisionReject
)

func (s *Server) resolveRequest(decision types.Decision) http.HandlerFunc {
	type body struct {
		Comment string `json:"comment"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var in body
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		req, err := s.uc.Request.Resolve(r.Context(), model.RequestID(chi.URLParam(r, "id")), usecase.ResolveInput{
			Decision: decision,
			Comment:  in.Comment,
		})
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, newRequestResponse(req))
	}
}
