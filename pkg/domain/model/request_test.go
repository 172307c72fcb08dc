package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

var requester = &model.User{
	ID:       "member",
	Name:     "Max Member",
	Email:    "max@example.com",
	Role:     types.RoleMember,
	LeaderID: "leader",
	Active:   true,
}

func TestNewRequest(t *testing.T) {
	t.Run("captures requester identity", func(t *testing.T) {
		req, err := model.NewRequest(requester, &model.CompleteTaskPayload{TaskKey: "12345"}, "all done", monday)
		gt.NoError(t, err).Required()

		gt.Value(t, req.Kind).Equal(types.RequestKindCompleteTask)
		gt.Value(t, req.Status).Equal(types.RequestStatusPending)
		gt.Value(t, req.RequesterName).Equal("Max Member")
		gt.Value(t, req.RequesterEmail).Equal("max@example.com")
		gt.Value(t, req.Target()).Equal("12345")
		gt.Value(t, req.SubmittedAt).Equal(monday)
		gt.String(t, req.ID.String()).NotEqual("")
	})

	t.Run("deactivation of another account is denied", func(t *testing.T) {
		_, err := model.NewRequest(requester, &model.DeactivateAccountPayload{AccountID: "other"}, "", monday)
		gt.Error(t, err).Is(model.ErrPermissionDenied)
	})

	t.Run("invalid task key", func(t *testing.T) {
		_, err := model.NewRequest(requester, &model.FreezeTaskPayload{TaskKey: "12"}, "", monday)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := model.NewRequest(requester, nil, "", monday)
		gt.Error(t, err).Is(model.ErrInvalidPayload)
	})
}

func TestNewPayload(t *testing.T) {
	for _, kind := range types.AllRequestKinds() {
		p, err := model.NewPayload(kind, "12345", "because")
		gt.NoError(t, err).Required()
		gt.Value(t, p.Kind()).Equal(kind)
		gt.Value(t, p.Target()).Equal("12345")
	}

	p, err := model.NewPayload(types.RequestKindCompleteTask, "12345", "ignored")
	gt.NoError(t, err).Required()
	gt.Value(t, p.Reason()).Equal("")

	_, err = model.NewPayload(types.RequestKind("TRANSFER_TASK"), "12345", "")
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestRequest_Resolve(t *testing.T) {
	newRequest := func(t *testing.T) *model.Request {
		req, err := model.NewRequest(requester, &model.UnfreezeTaskPayload{TaskKey: "12345"}, "", monday)
		gt.NoError(t, err).Required()
		return req
	}

	t.Run("approve", func(t *testing.T) {
		req := newRequest(t)
		gt.NoError(t, req.Resolve(types.DecisionApprove, "leader", "ok", day(1))).Required()
		gt.Value(t, req.Status).Equal(types.RequestStatusApproved)
		gt.Value(t, req.ResolvedBy).Equal("leader")
		gt.Value(t, *req.ResolvedAt).Equal(day(1))
		gt.Value(t, req.ResolutionComment).Equal("ok")
	})

	t.Run("reject", func(t *testing.T) {
		req := newRequest(t)
		gt.NoError(t, req.Resolve(types.DecisionReject, "leader", "", day(1))).Required()
		gt.Value(t, req.Status).Equal(types.RequestStatusRejected)
	})

	t.Run("second resolution is a conflict", func(t *testing.T) {
		req := newRequest(t)
		gt.NoError(t, req.Resolve(types.DecisionReject, "leader", "", day(1))).Required()
		gt.Error(t, req.Resolve(types.DecisionApprove, "leader", "", day(2))).Is(model.ErrConflict)
		gt.Value(t, req.Status).Equal(types.RequestStatusRejected)
	})

	t.Run("unknown decision", func(t *testing.T) {
		req := newRequest(t)
		gt.Error(t, req.Resolve(types.Decision("MAYBE"), "leader", "", day(1))).Is(model.ErrValidation)
		gt.Value(t, req.Status).Equal(types.RequestStatusPending)
	})
}

func TestRequest_PendingKey(t *testing.T) {
	req, err := model.NewRequest(requester, &model.FreezeTaskPayload{TaskKey: "12345", ReasonMessage: "vacation"}, "", monday)
	gt.NoError(t, err).Required()

	key := req.PendingKey()
	gt.Value(t, key).Equal(model.PendingKey{
		Kind:        types.RequestKindFreezeTask,
		RequesterID: "member",
		Target:      "12345",
	})
	gt.Value(t, key.String()).Equal("FREEZE_TASK:member:12345")
}
