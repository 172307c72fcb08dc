package audit_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/service/audit"
)

func resolvedRequest(t *testing.T) *model.Request {
	t.Helper()
	submitted := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	req, err := model.NewRequest(
		&model.User{ID: "member", Name: "Max", Email: "max@example.com"},
		&model.FreezeTaskPayload{TaskKey: "12345", ReasonMessage: "waiting for vendor"},
		"see ticket",
		submitted,
	)
	gt.NoError(t, err).Required()
	gt.NoError(t, req.Resolve(types.DecisionApprove, "leader", "ok", submitted.AddDate(0, 1, 0))).Required()
	return req
}

func TestNewRecord(t *testing.T) {
	req := resolvedRequest(t)
	rec := audit.NewRecord(req)

	gt.Value(t, rec.RequestID).Equal(req.ID.String())
	gt.Value(t, rec.Kind).Equal(types.RequestKindFreezeTask)
	gt.Value(t, rec.Status).Equal(types.RequestStatusApproved)
	gt.Value(t, rec.Target).Equal("12345")
	gt.Value(t, rec.Reason).Equal("waiting for vendor")
	gt.Value(t, rec.RequesterEmail).Equal("max@example.com")
	gt.Value(t, rec.ResolvedBy).Equal("leader")
	gt.Value(t, rec.ResolutionComment).Equal("ok")
}

func TestObjectName(t *testing.T) {
	req := resolvedRequest(t)
	rec := audit.NewRecord(req)

	gt.Value(t, audit.ObjectName("archive", rec)).
		Equal("archive/FREEZE_TASK/2024/04/" + req.ID.String() + ".json")
	gt.Value(t, audit.ObjectName("", rec)).
		Equal("FREEZE_TASK/2024/04/" + req.ID.String() + ".json")
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := audit.New(context.Background(), "", "")
	gt.Error(t, err)
}

func TestWriter(t *testing.T) {
	bucket := os.Getenv("TEST_AUDIT_BUCKET")
	if bucket == "" {
		t.Skip("TEST_AUDIT_BUCKET is not set")
	}

	ctx := context.Background()
	prefix := "test/" + time.Now().UTC().Format("20060102150405")
	w, err := audit.New(ctx, bucket, prefix)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = w.Close() })

	req := resolvedRequest(t)
	gt.NoError(t, w.Record(ctx, req)).Required()

	client, err := storage.NewClient(ctx)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = client.Close() })

	obj := client.Bucket(bucket).Object(audit.ObjectName(prefix, audit.NewRecord(req)))
	r, err := obj.NewReader(ctx)
	gt.NoError(t, err).Required()
	defer func() { _ = r.Close() }()

	raw, err := io.ReadAll(r)
	gt.NoError(t, err).Required()

	var got audit.Record
	gt.NoError(t, json.Unmarshal(raw, &got)).Required()
	gt.Value(t, got.RequestID).Equal(req.ID.String())
	gt.Value(t, got.Status).Equal(types.RequestStatusApproved)

	gt.NoError(t, obj.Delete(ctx))
}
