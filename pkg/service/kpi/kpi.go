// Package kpi hands period aggregate recomputation to the KPI workers through an asynq queue.
package kpi

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

const (
	// TaskTypeRecompute is the asynq task type consumed by the KPI workers
	TaskTypeRecompute = "kpi:recompute"
	// Queue is the asynq queue recompute tasks are placed on
	Queue = "kpi"

	maxRetry = 5
)

// RecomputePayload is the body of a recompute task
type RecomputePayload struct {
	SubjectID string `json:"subject_id"`
	PeriodKey string `json:"period_key"`
}

// NewRecomputeTask builds the asynq task for one subject and period
func NewRecomputeTask(subjectID, periodKey string) (*asynq.Task, error) {
	if subjectID == "" || periodKey == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "subject and period are required",
			goerr.V(model.UserIDKey, subjectID), goerr.V("period", periodKey))
	}

	raw, err := json.Marshal(&RecomputePayload{SubjectID: subjectID, PeriodKey: periodKey})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal recompute payload")
	}
	return asynq.NewTask(TaskTypeRecompute, raw,
		asynq.Queue(Queue),
		asynq.MaxRetry(maxRetry),
	), nil
}

// ParseRecomputePayload decodes the payload of a recompute task on the consumer side
func ParseRecomputePayload(task *asynq.Task) (*RecomputePayload, error) {
	if task.Type() != TaskTypeRecompute {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unexpected task type", goerr.V("type", task.Type()))
	}

	var p RecomputePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal recompute payload")
	}
	return &p, nil
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer implements interfaces.Recomputer by enqueueing asynq tasks. Every trigger is
// enqueued as its own job, also when one for the same subject is already queued or running.
type Enqueuer struct {
	client taskClient
}

var _ interfaces.Recomputer = &Enqueuer{}

func NewEnqueuer(client redis.UniversalClient) *Enqueuer {
	return &Enqueuer{client: asynq.NewClientFromRedisClient(client)}
}

func (x *Enqueuer) RecomputePeriodAggregate(ctx context.Context, subjectID, periodKey string) error {
	task, err := NewRecomputeTask(subjectID, periodKey)
	if err != nil {
		return err
	}

	info, err := x.client.EnqueueContext(ctx, task)
	if err != nil {
		return goerr.Wrap(err, "failed to enqueue recompute task",
			goerr.V(model.UserIDKey, subjectID), goerr.V("period", periodKey))
	}

	logging.From(ctx).Debug("recompute enqueued", "task_id", info.ID, "queue", info.Queue)
	return nil
}
