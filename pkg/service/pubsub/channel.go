package pubsub

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

// DefaultPrefix namespaces every key and channel written by this package
const DefaultPrefix = "flowsync:"

// Channel is the in-app notification channel. Each user has one Redis pub/sub channel and a
// connected client receives notifications published while it is subscribed.
type Channel struct {
	client redis.UniversalClient
	prefix string
}

var _ interfaces.Notifier = &Channel{}

type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix replaces DefaultPrefix
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func buildOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewChannel(client redis.UniversalClient, opts ...Option) *Channel {
	o := buildOptions(opts)
	return &Channel{client: client, prefix: o.prefix}
}

// ChannelName returns the pub/sub channel of userID
func (x *Channel) ChannelName(userID string) string {
	return channelName(x.prefix, userID)
}

func channelName(prefix, userID string) string {
	return prefix + "notify:" + userID
}

// Notify publishes n to the recipient's channel. A notification nobody listens to is dropped
// by Redis, which is not an error here.
func (x *Channel) Notify(ctx context.Context, n *model.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal notification")
	}

	receivers, err := x.client.Publish(ctx, x.ChannelName(n.RecipientID), raw).Result()
	if err != nil {
		return goerr.Wrap(err, "failed to publish notification",
			goerr.V(model.UserIDKey, n.RecipientID))
	}

	logging.From(ctx).Debug("published in-app notification",
		"recipient", n.RecipientID, "receivers", receivers)
	return nil
}

// Subscription streams the notifications of one user
type Subscription struct {
	ps *redis.PubSub
	ch chan *model.Notification
}

// Subscribe opens a subscription to userID's channel. The subscription is confirmed before
// returning so no notification published afterwards is missed.
func (x *Channel) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	ps := x.client.Subscribe(ctx, x.ChannelName(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, goerr.Wrap(err, "failed to subscribe notification channel",
			goerr.V(model.UserIDKey, userID))
	}

	sub := &Subscription{ps: ps, ch: make(chan *model.Notification)}
	go sub.run(ctx)
	return sub, nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		var n model.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			logging.From(ctx).Warn("dropped malformed notification",
				"channel", msg.Channel, "error", err.Error())
			continue
		}

		select {
		case s.ch <- &n:
		case <-ctx.Done():
			return
		}
	}
}

// C returns the stream of notifications. It is closed after Close.
func (s *Subscription) C() <-chan *model.Notification {
	return s.ch
}

func (s *Subscription) Close() error {
	if err := s.ps.Close(); err != nil {
		return goerr.Wrap(err, "failed to close subscription")
	}
	return nil
}
