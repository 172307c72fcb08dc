package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/repository/memory"
	"github.com/secmon-lab/flowsync/pkg/usecase"
)

// monday is 2024-03-04 09:00 UTC
var monday = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	uc         *usecase.UseCases
	repo       *memory.Memory
	clock      *fakeClock
	notifier   *recordingNotifier
	recomputer *recordingRecomputer
	audit      *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:       memory.New(),
		clock:      &fakeClock{now: monday},
		notifier:   &recordingNotifier{},
		recomputer: &recordingRecomputer{},
		audit:      &recordingAudit{},
	}
	f.uc = usecase.New(f.repo,
		usecase.WithClock(f.clock.Now),
		usecase.WithNotifier(f.notifier),
		usecase.WithRecomputer(f.recomputer),
		usecase.WithAuditSink(f.audit),
	)

	ctx := context.Background()
	users := []*model.User{
		{ID: "leader", Name: "Lea", Email: "lea@example.com", Role: types.RoleLeader, Active: true},
		{ID: "member", Name: "Max", Email: "max@example.com", Role: types.RoleMember, LeaderID: "leader", Active: true},
		{ID: "other", Name: "Ota", Email: "ota@example.com", Role: types.RoleMember, LeaderID: "leader", Active: true},
	}
	for _, u := range users {
		gt.NoError(t, f.repo.User().Put(ctx, u)).Required()
	}
	return f
}

func as(id string, role types.Role) context.Context {
	return auth.ContextWithActor(context.Background(), &auth.Actor{ID: id, Role: role})
}

var (
	leaderCtx = as("leader", types.RoleLeader)
	memberCtx = as("member", types.RoleMember)
	otherCtx  = as("other", types.RoleMember)
)

func (f *fixture) createTask(t *testing.T, key string, priority types.Priority) *model.Task {
	t.Helper()
	task, err := f.uc.Task.CreateTask(leaderCtx, usecase.CreateTaskInput{
		Key:      key,
		Title:    "case " + key,
		Priority: priority,
		OwnerID:  "member",
	})
	gt.NoError(t, err).Required()
	return task
}
