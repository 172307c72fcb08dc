package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// Notifier delivers notifications as Slack direct messages. The Slack account is found by
// the override email when present, otherwise by the recipient's registered email.
type Notifier struct {
	svc   Service
	users interfaces.UserRepository
}

var _ interfaces.Notifier = &Notifier{}

func NewNotifier(svc Service, users interfaces.UserRepository) *Notifier {
	return &Notifier{svc: svc, users: users}
}

func (x *Notifier) Notify(ctx context.Context, n *model.Notification) error {
	email := n.OverrideEmail
	if email == "" {
		user, err := x.users.Get(ctx, n.RecipientID)
		if err != nil {
			return goerr.Wrap(err, "failed to get recipient", goerr.V(model.UserIDKey, n.RecipientID))
		}
		email = user.Email
	}
	if email == "" {
		return goerr.New("recipient has no email", goerr.V(model.UserIDKey, n.RecipientID))
	}

	slackUser, err := x.svc.LookupUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	return x.svc.SendDirectMessage(ctx, slackUser.ID, FormatNotification(n))
}
