package usecase_test

import (
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/usecase"
)

func TestCompletionRequestEndToEnd(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, "10001", types.PriorityRegular)
	gt.Value(t, task.Deadline).Equal(monday.AddDate(0, 0, 14))

	f.clock.Set(monday.Add(3 * 24 * time.Hour))
	req, err := f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{
		Target: "10001",
		Notes:  "fixed upstream",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, req.Status).Equal(types.RequestStatusPending)
	gt.Value(t, req.RequesterName).Equal("Max")
	gt.Value(t, req.RequesterEmail).Equal("max@example.com")

	approvedAt := monday.Add(4 * 24 * time.Hour)
	f.clock.Set(approvedAt)
	resolved, err := f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.NoError(t, err).Required()
	gt.Value(t, resolved.Status).Equal(types.RequestStatusApproved)
	gt.Value(t, resolved.ResolvedBy).Equal("leader")
	f.uc.Wait()

	got, err := f.uc.Task.GetTask(memberCtx, task.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(types.TaskStatusCompleted)
	gt.Value(t, got.CompletedAt).NotNil()
	gt.Value(t, *got.CompletedAt).Equal(approvedAt)
	gt.Value(t, got.Notes).Equal("fixed upstream")

	counter, err := f.uc.Task.GetTaskCounter(memberCtx, task.ID, approvedAt.Add(30*24*time.Hour))
	gt.NoError(t, err).Required()
	gt.Value(t, counter).Equal(time.Duration(0))

	t.Run("leader was told about the submission", func(t *testing.T) {
		msgs := f.notifier.To("leader")
		gt.Array(t, msgs).Length(1)
		gt.Value(t, msgs[0].Category).Equal(types.NotificationRequest)
		gt.Value(t, msgs[0].RequestID).Equal(req.ID)
	})

	t.Run("requester was told about the approval", func(t *testing.T) {
		var approvals []*model.Notification
		for _, msg := range f.notifier.To("member") {
			if msg.Category == types.NotificationApproval {
				approvals = append(approvals, msg)
			}
		}
		gt.Array(t, approvals).Length(1)
		gt.Value(t, approvals[0].OverrideEmail).Equal("")
	})

	t.Run("owner and leader aggregates are recomputed", func(t *testing.T) {
		calls := f.recomputer.Calls()
		gt.Array(t, calls).Length(2)
		subjects := map[string]string{}
		for _, c := range calls {
			subjects[c.SubjectID] = c.PeriodKey
		}
		gt.Value(t, subjects["member"]).Equal("2024")
		gt.Value(t, subjects["leader"]).Equal("2024")
	})

	t.Run("resolution is archived", func(t *testing.T) {
		gt.Value(t, f.audit.Len()).Equal(1)
	})
}

func TestSubmitDuplicatePending(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "10002", types.PriorityUrgent)

	input := usecase.SubmitInput{Target: "10002"}
	first, err := f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, input)
	gt.NoError(t, err).Required()

	_, err = f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, input)
	gt.Error(t, err).Is(model.ErrDuplicatePendingRequest)
	gt.Value(t, model.KindOf(err)).Equal(model.KindConflict)

	_, err = f.uc.Request.Resolve(leaderCtx, first.ID, usecase.ResolveInput{Decision: types.DecisionReject, Comment: "not yet"})
	gt.NoError(t, err).Required()

	second, err := f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, input)
	gt.NoError(t, err).Required()
	gt.Value(t, second.ID).NotEqual(first.ID)
	f.uc.Wait()
}

func TestSubmitChecksTaskOwnership(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "10003", types.PriorityRegular)

	_, err := f.uc.Request.Submit(otherCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "10003"})
	gt.Error(t, err).Is(model.ErrNotTaskOwner)
	gt.Value(t, model.KindOf(err)).Equal(model.KindPermissionDenied)

	_, err = f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "99999"})
	gt.Error(t, err).Is(model.ErrTaskNotFound)

	_, err = f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "12ab"})
	gt.Value(t, model.KindOf(err)).Equal(model.KindValidation)

	_, err = f.uc.Request.Submit(memberCtx, types.RequestKindUnfreezeTask, usecase.SubmitInput{Target: "10003"})
	gt.Error(t, err).Is(model.ErrInvalidTransition)
}

func TestConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "10004", types.PriorityRegular)

	req, err := f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "10004"})
	gt.NoError(t, err).Required()

	decisions := []types.Decision{types.DecisionApprove, types.DecisionReject}
	results := make([]*model.Request, len(decisions))
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func(i int, d types.Decision) {
			defer wg.Done()
			results[i], errs[i] = f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: d})
		}(i, d)
	}
	wg.Wait()
	f.uc.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			gt.Value(t, winner).Equal(-1)
			winner = i
			continue
		}
		gt.Error(t, err).Is(model.ErrRequestAlreadyResolved)
		gt.Value(t, model.KindOf(err)).Equal(model.KindConflict)
	}
	gt.Bool(t, winner >= 0).True()

	stored, err := f.uc.Request.Get(leaderCtx, req.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.Status).Equal(decisions[winner].Status())
	gt.Value(t, results[winner].Status).Equal(stored.Status)

	got, err := f.repo.Task().Get(leaderCtx, task.ID)
	gt.NoError(t, err).Required()
	if decisions[winner] == types.DecisionApprove {
		gt.Value(t, got.Status).Equal(types.TaskStatusCompleted)
	} else {
		gt.Value(t, got.Status).Equal(types.TaskStatusOpened)
	}
}

func TestDeactivationRequest(t *testing.T) {
	t.Run("reject leaves the account active and cannot be resolved again", func(t *testing.T) {
		f := newFixture(t)

		req, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{Reason: "leaving"})
		gt.NoError(t, err).Required()
		gt.Value(t, req.Target()).Equal("member")
		gt.Value(t, req.Payload.Reason()).Equal("leaving")

		_, err = f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionReject})
		gt.NoError(t, err).Required()

		_, err = f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
		gt.Error(t, err).Is(model.ErrRequestAlreadyResolved)
		gt.Value(t, model.KindOf(err)).Equal(model.KindConflict)
		f.uc.Wait()

		u, err := f.repo.User().Get(leaderCtx, "member")
		gt.NoError(t, err).Required()
		gt.Bool(t, u.Active).True()

		stored, err := f.uc.Request.Get(memberCtx, req.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Status).Equal(types.RequestStatusRejected)

		var rejections []*model.Notification
		for _, msg := range f.notifier.To("member") {
			if msg.Category == types.NotificationReject {
				rejections = append(rejections, msg)
			}
		}
		gt.Array(t, rejections).Length(1)
		gt.Value(t, rejections[0].OverrideEmail).Equal("max@example.com")
	})

	t.Run("approve deactivates and blocks further submissions", func(t *testing.T) {
		f := newFixture(t)

		req, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{Target: "member"})
		gt.NoError(t, err).Required()

		_, err = f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
		gt.NoError(t, err).Required()
		f.uc.Wait()

		u, err := f.repo.User().Get(leaderCtx, "member")
		gt.NoError(t, err).Required()
		gt.Bool(t, u.Active).False()

		_, err = f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{})
		gt.Error(t, err).Is(model.ErrAccountDeactivated)
		gt.Array(t, f.recomputer.Calls()).Length(0)
	})

	t.Run("members cannot ask to deactivate someone else", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{Target: "other"})
		gt.Value(t, model.KindOf(err)).Equal(model.KindPermissionDenied)
	})
}

func TestResolveFailureKeepsRequestPending(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "10005", types.PriorityRegular)

	freeze, err := f.uc.Request.Submit(memberCtx, types.RequestKindFreezeTask, usecase.SubmitInput{Target: "10005", Reason: "vendor"})
	gt.NoError(t, err).Required()
	complete, err := f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "10005"})
	gt.NoError(t, err).Required()

	_, err = f.uc.Request.Resolve(leaderCtx, complete.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.NoError(t, err).Required()

	_, err = f.uc.Request.Resolve(leaderCtx, freeze.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.Error(t, err).Is(model.ErrTaskCompleted)
	f.uc.Wait()

	stored, err := f.uc.Request.Get(leaderCtx, freeze.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.Status).Equal(types.RequestStatusPending)
	gt.Value(t, stored.ResolvedAt).Nil()
}

func TestFreezeAndUnfreezeRequests(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "10006", types.PriorityUrgent)

	f.clock.Set(monday.Add(5 * time.Hour))
	freeze, err := f.uc.Request.Submit(memberCtx, types.RequestKindFreezeTask, usecase.SubmitInput{Target: "10006", Reason: "blocked"})
	gt.NoError(t, err).Required()
	_, err = f.uc.Request.Resolve(leaderCtx, freeze.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.NoError(t, err).Required()

	frozen, err := f.uc.Task.GetTask(memberCtx, task.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, frozen.Status).Equal(types.TaskStatusFrozen)
	gt.Value(t, frozen.FreezeReason).Equal("blocked")
	snapshot := *frozen.FrozenCounter
	gt.Value(t, snapshot).Equal(task.Deadline.Sub(monday.Add(5 * time.Hour)))

	resumeAt := monday.Add(10 * 24 * time.Hour)
	f.clock.Set(resumeAt)
	unfreeze, err := f.uc.Request.Submit(memberCtx, types.RequestKindUnfreezeTask, usecase.SubmitInput{Target: "10006"})
	gt.NoError(t, err).Required()
	_, err = f.uc.Request.Resolve(leaderCtx, unfreeze.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.NoError(t, err).Required()
	f.uc.Wait()

	counter, err := f.uc.Task.GetTaskCounter(memberCtx, task.ID, resumeAt)
	gt.NoError(t, err).Required()
	gt.Value(t, counter).Equal(snapshot)
}

func TestResolveRequiresLeader(t *testing.T) {
	f := newFixture(t)
	req, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{})
	gt.NoError(t, err).Required()

	_, err = f.uc.Request.Resolve(otherCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.Error(t, err).Is(model.ErrRoleRequired)

	_, err = f.uc.Request.Resolve(leaderCtx, model.NewRequestID(), usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.Error(t, err).Is(model.ErrRequestNotFound)

	_, err = f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: "MAYBE"})
	gt.Value(t, model.KindOf(err)).Equal(model.KindValidation)
	f.uc.Wait()
}

func TestListRequests(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "10007", types.PriorityRegular)

	mine, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{})
	gt.NoError(t, err).Required()
	f.clock.Set(monday.Add(time.Minute))
	theirs, err := f.uc.Request.Submit(otherCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{})
	gt.NoError(t, err).Required()
	_, err = f.uc.Request.Submit(memberCtx, types.RequestKindCompleteTask, usecase.SubmitInput{Target: "10007"})
	gt.NoError(t, err).Required()

	all, err := f.uc.Request.List(leaderCtx, types.RequestKindDeactivateAccount)
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(2)
	gt.Value(t, all[0].ID).Equal(mine.ID)
	gt.Value(t, all[1].ID).Equal(theirs.ID)

	own, err := f.uc.Request.List(memberCtx, types.RequestKindDeactivateAccount)
	gt.NoError(t, err).Required()
	gt.Array(t, own).Length(1)
	gt.Value(t, own[0].ID).Equal(mine.ID)

	_, err = f.uc.Request.Get(memberCtx, theirs.ID)
	gt.Value(t, model.KindOf(err)).Equal(model.KindPermissionDenied)
	f.uc.Wait()
}

func TestNotificationFailureDoesNotFailResolution(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errDeliveryFailed

	req, err := f.uc.Request.Submit(memberCtx, types.RequestKindDeactivateAccount, usecase.SubmitInput{})
	gt.NoError(t, err).Required()

	resolved, err := f.uc.Request.Resolve(leaderCtx, req.ID, usecase.ResolveInput{Decision: types.DecisionApprove})
	gt.NoError(t, err).Required()
	gt.Value(t, resolved.Status).Equal(types.RequestStatusApproved)
	f.uc.Wait()
}
