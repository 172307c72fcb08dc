package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

func TestParsePriority(t *testing.T) {
	for _, p := range types.AllPriorities() {
		got, err := types.ParsePriority(p.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(p)
	}

	_, err := types.ParsePriority("urgent")
	gt.Error(t, err)
}

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		status   types.TaskStatus
		live     bool
		terminal bool
	}{
		{types.TaskStatusOpened, true, false},
		{types.TaskStatusDelayed, true, false},
		{types.TaskStatusFrozen, false, false},
		{types.TaskStatusCompleted, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			gt.Value(t, tt.status.IsLive()).Equal(tt.live)
			gt.Value(t, tt.status.IsTerminal()).Equal(tt.terminal)
			got, err := types.ParseTaskStatus(tt.status.String())
			gt.NoError(t, err)
			gt.Value(t, got).Equal(tt.status)
		})
	}

	_, err := types.ParseTaskStatus("CLOSED")
	gt.Error(t, err)
}

func TestRequestKind(t *testing.T) {
	gt.Array(t, types.AllRequestKinds()).Length(4)
	gt.Bool(t, types.RequestKindCompleteTask.TargetsTask()).True()
	gt.Bool(t, types.RequestKindFreezeTask.TargetsTask()).True()
	gt.Bool(t, types.RequestKindUnfreezeTask.TargetsTask()).True()
	gt.Bool(t, types.RequestKindDeactivateAccount.TargetsTask()).False()

	_, err := types.ParseRequestKind("TRANSFER_TASK")
	gt.Error(t, err)
}

func TestParseRequestStatus(t *testing.T) {
	for _, s := range []types.RequestStatus{types.RequestStatusPending, types.RequestStatusApproved, types.RequestStatusRejected} {
		got, err := types.ParseRequestStatus(s.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(s)
	}

	_, err := types.ParseRequestStatus("WITHDRAWN")
	gt.Error(t, err)
}

func TestDecision(t *testing.T) {
	gt.Value(t, types.DecisionApprove.Status()).Equal(types.RequestStatusApproved)
	gt.Value(t, types.DecisionReject.Status()).Equal(types.RequestStatusRejected)
	gt.Bool(t, types.Decision("MAYBE").IsValid()).False()

	gt.Bool(t, types.RequestStatusApproved.IsResolved()).True()
	gt.Bool(t, types.RequestStatusPending.IsResolved()).False()
}

func TestRole(t *testing.T) {
	tests := []struct {
		role    types.Role
		resolve bool
		admin   bool
	}{
		{types.RoleMember, false, false},
		{types.RoleLeader, true, true},
		{types.RoleAdmin, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			gt.Value(t, tt.role.CanResolve()).Equal(tt.resolve)
			gt.Value(t, tt.role.IsAdministrative()).Equal(tt.admin)
		})
	}

	_, err := types.ParseRole("OWNER")
	gt.Error(t, err)
}
