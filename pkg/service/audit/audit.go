// Package audit archives resolved requests as JSON objects in Cloud Storage.
package audit

import (
	"context"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

// Record is the archived form of a resolved request
type Record struct {
	RequestID         string              `json:"request_id"`
	Kind              types.RequestKind   `json:"kind"`
	Status            types.RequestStatus `json:"status"`
	RequesterID       string              `json:"requester_id"`
	RequesterName     string              `json:"requester_name"`
	RequesterEmail    string              `json:"requester_email"`
	Target            string              `json:"target"`
	Reason            string              `json:"reason,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	SubmittedAt       time.Time           `json:"submitted_at"`
	ResolvedBy        string              `json:"resolved_by"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
	ResolutionComment string              `json:"resolution_comment,omitempty"`
}

// NewRecord converts req to its archived form
func NewRecord(req *model.Request) *Record {
	rec := &Record{
		RequestID:         req.ID.String(),
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
		rec.Reason = req.Payload.Reason()
	}
	return rec
}

// ObjectName returns the object path of rec below prefix: <prefix>/<kind>/<yyyy>/<mm>/<id>.json,
// dated by resolution time.
func ObjectName(prefix string, rec *Record) string {
	at := rec.SubmittedAt
	if rec.ResolvedAt != nil {
		at = *rec.ResolvedAt
	}
	at = at.UTC()
	return path.Join(prefix, string(rec.Kind), at.Format("2006"), at.Format("01"), rec.RequestID+".json")
}

// Writer implements interfaces.AuditSink on a Cloud Storage bucket
type Writer struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.AuditSink = &Writer{}

func New(ctx context.Context, bucket, prefix string) (*Writer, error) {
	if bucket == "" {
		return nil, goerr.New("audit bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &Writer{client: client, bucket: bucket, prefix: prefix}, nil
}

func (x *Writer) Record(ctx context.Context, req *model.Request) error {
	rec := NewRecord(req)
	raw, err := json.Marshal(rec)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal audit record", goerr.V(model.RequestIDKey, req.ID))
	}

	name := ObjectName(x.prefix, rec)
	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write audit record",
			goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize audit record",
			goerr.V("bucket", x.bucket), goerr.V("object", name))
	}

	logging.From(ctx).Debug("archived request", "object", name)
	return nil
}

func (x *Writer) Close() error {
	return x.client.Close()
}
