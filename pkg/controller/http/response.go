package http

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
	"github.com/secmon-lab/flowsync/pkg/utils/safe"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string          `json:"error"`
	Kind  model.ErrorKind `json:"kind,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

func writeErrorMessage(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

// statusOf maps an error kind to its HTTP status code
func statusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindPermissionDenied:
		return http.StatusForbidden
	case model.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes it. Internal errors are reported and their detail is
// not exposed.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	status := statusOf(kind)

	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "request failed")
		writeJSON(ctx, w, status, errorResponse{Error: "internal server error", Kind: kind})
		return
	}

	logging.From(ctx).Info("request rejected", "status", status, "kind", kind, "error", err.Error())
	writeJSON(ctx, w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrInvalidArgument, "malformed request body", goerr.V("cause", err.Error()))
	}
	return nil
}
