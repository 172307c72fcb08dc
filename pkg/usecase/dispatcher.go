package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/utils/async"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"golang.org/x/sync/errgroup"
)

// Dispatcher issues the fire-and-forget side effects of committed decisions. Nothing it does
// is reported to the caller; failures are logged through errutil.
type Dispatcher struct {
	group      *async.Group
	notifier   interfaces.Notifier
	recomputer interfaces.Recomputer
	audit      interfaces.AuditSink
}

func NewDispatcher(group *async.Group, notifier interfaces.Notifier, recomputer interfaces.Recomputer, audit interfaces.AuditSink) *Dispatcher {
	if group == nil {
		group = &async.Group{}
	}
	return &Dispatcher{
		group:      group,
		notifier:   notifier,
		recomputer: recomputer,
		audit:      audit,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, n *model.Notification) {
	if d.notifier == nil || n == nil || n.RecipientID == "" {
		return
	}

	d.group.Dispatch(ctx, "notify", func(ctx context.Context) error {
		if err := d.notifier.Notify(ctx, n); err != nil {
			return goerr.Wrap(err, "failed to notify",
				goerr.V(model.UserIDKey, n.RecipientID),
				goerr.V(model.RequestIDKey, n.RequestID))
		}
		return nil
	})
}

// Recompute triggers the period aggregate of every distinct subject in parallel. A failure
// for one subject does not stop the others.
func (d *Dispatcher) Recompute(ctx context.Context, periodKey string, subjectIDs ...string) {
	if d.recomputer == nil {
		return
	}

	d.group.Dispatch(ctx, "recompute", func(ctx context.Context) error {
		var eg errgroup.Group
		seen := make(map[string]struct{}, len(subjectIDs))
		for _, subjectID := range subjectIDs {
			if _, dup := seen[subjectID]; dup || subjectID == "" {
				continue
			}
			seen[subjectID] = struct{}{}

			eg.Go(func() error {
				if err := d.recomputer.RecomputePeriodAggregate(ctx, subjectID, periodKey); err != nil {
					errutil.Handle(ctx, goerr.Wrap(err, "failed to recompute period aggregate",
						goerr.V(model.UserIDKey, subjectID),
						goerr.V("period", periodKey)), "recompute failed")
				}
				return nil
			})
		}
		return eg.Wait()
	})
}

func (d *Dispatcher) Archive(ctx context.Context, req *model.Request) {
	if d.audit == nil || req == nil {
		return
	}

	archived := req.Copy()
	d.group.Dispatch(ctx, "audit", func(ctx context.Context) error {
		if err := d.audit.Record(ctx, archived); err != nil {
			return goerr.Wrap(err, "failed to archive request", goerr.V(model.RequestIDKey, archived.ID))
		}
		return nil
	})
}
