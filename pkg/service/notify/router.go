// Package notify routes notifications to the in-app channel and the out-of-app channel
// depending on the recipient's presence.
package notify

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
)

// Router is a Notifier that picks delivery channels per notification:
//   - an override email is delivered out-of-app only
//   - an online recipient gets the in-app channel only
//   - an offline recipient gets both
//
// Either channel may be nil, in which case it is skipped.
type Router struct {
	inApp    interfaces.Notifier
	outOfApp interfaces.Notifier
	presence interfaces.Presence
}

var _ interfaces.Notifier = &Router{}

func NewRouter(inApp, outOfApp interfaces.Notifier, presence interfaces.Presence) *Router {
	return &Router{inApp: inApp, outOfApp: outOfApp, presence: presence}
}

func (x *Router) Notify(ctx context.Context, n *model.Notification) error {
	if n.OverrideEmail != "" {
		return x.deliver(ctx, x.outOfApp, n)
	}

	if err := x.deliver(ctx, x.inApp, n); err != nil {
		// in-app failure still leaves the out-of-app channel
		errutil.Handle(ctx, err, "in-app delivery failed")
		return x.deliver(ctx, x.outOfApp, n)
	}

	if x.isOnline(ctx, n.RecipientID) {
		return nil
	}
	return x.deliver(ctx, x.outOfApp, n)
}

func (x *Router) isOnline(ctx context.Context, userID string) bool {
	if x.presence == nil || x.inApp == nil {
		return false
	}
	online, err := x.presence.IsOnline(ctx, userID)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "presence lookup failed", goerr.V(model.UserIDKey, userID)),
			"treating recipient as offline")
		return false
	}
	return online
}

func (x *Router) deliver(ctx context.Context, n interfaces.Notifier, notification *model.Notification) error {
	if n == nil {
		return nil
	}
	return n.Notify(ctx, notification)
}
