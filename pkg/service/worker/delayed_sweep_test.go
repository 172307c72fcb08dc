package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/repository/memory"
	"github.com/secmon-lab/flowsync/pkg/service/worker"
	"github.com/secmon-lab/flowsync/pkg/usecase"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSweeper) SweepDelayed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, s.err
}

func (s *countingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDelayedSweepWorker_RunsPeriodically(t *testing.T) {
	sweeper := &countingSweeper{}
	w := worker.NewDelayedSweepWorker(sweeper, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(110 * time.Millisecond)
	w.Stop()

	gt.Bool(t, sweeper.count() >= 2).True()

	// no further sweeps after Stop
	stopped := sweeper.count()
	time.Sleep(50 * time.Millisecond)
	gt.Value(t, sweeper.count()).Equal(stopped)
}

func TestDelayedSweepWorker_ContinuesAfterError(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("backend unavailable")}
	w := worker.NewDelayedSweepWorker(sweeper, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	time.Sleep(90 * time.Millisecond)
	w.Stop()

	gt.Bool(t, sweeper.count() >= 2).True()
}

func TestDelayedSweepWorker_StopsOnContextCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	w := worker.NewDelayedSweepWorker(sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, w.Start(ctx)).Required()
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
	gt.Value(t, sweeper.count()).Equal(1)
}

func TestDelayedSweepWorker_MarksOverdueTask(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	gt.NoError(t, repo.User().Put(ctx, &model.User{ID: "leader", Role: types.RoleLeader, Active: true})).Required()

	created := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	now := created
	uc := usecase.New(repo, usecase.WithClock(func() time.Time { return now }))

	leaderCtx := auth.ContextWithActor(ctx, &auth.Actor{ID: "leader", Role: types.RoleLeader})
	task, err := uc.Task.CreateTask(leaderCtx, usecase.CreateTaskInput{
		Key:      "10001",
		Title:    "quarterly report",
		Priority: types.PriorityUrgent,
		OwnerID:  "leader",
	})
	gt.NoError(t, err).Required()

	now = created.AddDate(0, 0, 30)

	w := worker.NewDelayedSweepWorker(uc.Task, time.Hour)
	gt.NoError(t, w.Start(ctx)).Required()
	w.Stop()
	uc.Wait()

	stored, err := repo.Task().Get(ctx, task.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.Status).Equal(types.TaskStatusDelayed)
}
