package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

// Sweeper materializes the Delayed status of overdue tasks
type Sweeper interface {
	SweepDelayed(ctx context.Context) (int, error)
}

// DelayedSweepWorker periodically runs the delayed sweep.
//
// Architecture assumptions:
// - The sweep is idempotent, so several server instances may run it concurrently
// - MarkDelayed is conditional, so a task resumed or completed between list and update is left alone
type DelayedSweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDelayedSweepWorker creates a new worker for the delayed sweep
func NewDelayedSweepWorker(sweeper Sweeper, interval time.Duration) *DelayedSweepWorker {
	return &DelayedSweepWorker{
		sweeper:  sweeper,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. The first sweep runs immediately in the background.
func (w *DelayedSweepWorker) Start(ctx context.Context) error {
	logging.Default().Info("Delayed sweep worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *DelayedSweepWorker) Stop() {
	logging.Default().Info("Delayed sweep worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Delayed sweep worker stopped")
}

func (w *DelayedSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Delayed sweep worker context cancelled")
			return
		}
	}
}

func (w *DelayedSweepWorker) sweep(ctx context.Context) {
	startTime := time.Now()
	changed, err := w.sweeper.SweepDelayed(ctx)
	if err != nil {
		// retried on the next tick
		errutil.Handle(ctx, err, "delayed sweep failed")
		return
	}
	logging.Default().Debug("Delayed sweep completed",
		"changed", changed,
		"duration", time.Since(startTime).String())
}
