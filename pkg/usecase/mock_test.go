package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*model.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, msg *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) To(userID string) []*model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*model.Notification
	for _, msg := range n.sent {
		if msg.RecipientID == userID {
			out = append(out, msg)
		}
	}
	return out
}

type recomputeCall struct {
	SubjectID string
	PeriodKey string
}

type recordingRecomputer struct {
	mu    sync.Mutex
	calls []recomputeCall
}

func (r *recordingRecomputer) RecomputePeriodAggregate(ctx context.Context, subjectID, periodKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recomputeCall{SubjectID: subjectID, PeriodKey: periodKey})
	return nil
}

func (r *recordingRecomputer) Calls() []recomputeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recomputeCall(nil), r.calls...)
}

type recordingAudit struct {
	mu      sync.Mutex
	records []*model.Request
}

func (a *recordingAudit) Record(ctx context.Context, req *model.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, req)
	return nil
}

func (a *recordingAudit) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

var errDeliveryFailed = errors.New("delivery failed")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
