package kpi

import (
	"context"

	"github.com/hibiken/asynq"
)

type EnqueueFunc func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)

func (f EnqueueFunc) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return f(ctx, task, opts...)
}

func NewEnqueuerWithClient(client EnqueueFunc) *Enqueuer {
	return &Enqueuer{client: client}
}
