package kpi_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/m-mizutani/gt"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/service/kpi"
)

func TestNewRecomputeTask(t *testing.T) {
	task, err := kpi.NewRecomputeTask("member", "2024")
	gt.NoError(t, err).Required()
	gt.Value(t, task.Type()).Equal(kpi.TaskTypeRecompute)

	p, err := kpi.ParseRecomputePayload(task)
	gt.NoError(t, err).Required()
	gt.Value(t, p.SubjectID).Equal("member")
	gt.Value(t, p.PeriodKey).Equal("2024")
}

func TestNewRecomputeTask_Invalid(t *testing.T) {
	_, err := kpi.NewRecomputeTask("", "2024")
	gt.Error(t, err).Is(model.ErrValidation)

	_, err = kpi.NewRecomputeTask("member", "")
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestParseRecomputePayload_WrongType(t *testing.T) {
	_, err := kpi.ParseRecomputePayload(asynq.NewTask("email:send", []byte("{}")))
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestEnqueuer_EveryTriggerIsEnqueued(t *testing.T) {
	var enqueued []*kpi.RecomputePayload
	enq := kpi.NewEnqueuerWithClient(func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
		p, err := kpi.ParseRecomputePayload(task)
		if err != nil {
			return nil, err
		}
		enqueued = append(enqueued, p)
		return &asynq.TaskInfo{ID: "id", Queue: kpi.Queue}, nil
	})
	ctx := context.Background()

	// two completions of the same member in quick succession
	gt.NoError(t, enq.RecomputePeriodAggregate(ctx, "member", "2024")).Required()
	gt.NoError(t, enq.RecomputePeriodAggregate(ctx, "member", "2024")).Required()

	gt.Array(t, enqueued).Length(2)
	gt.Value(t, enqueued[1].SubjectID).Equal("member")
}

func TestEnqueuer_Failure(t *testing.T) {
	enq := kpi.NewEnqueuerWithClient(func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
		return nil, errors.New("redis unavailable")
	})
	gt.Error(t, enq.RecomputePeriodAggregate(context.Background(), "member", "2024"))
}

func TestEnqueuer(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	enq := kpi.NewEnqueuer(client)
	ctx := context.Background()

	gt.NoError(t, enq.RecomputePeriodAggregate(ctx, "member", "2024")).Required()
	// a second trigger is enqueued as its own job
	gt.NoError(t, enq.RecomputePeriodAggregate(ctx, "member", "2024")).Required()
}
