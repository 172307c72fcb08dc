package pubsub

import (
	"context"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// DefaultPresenceTTL is how long a user stays online without a heartbeat
const DefaultPresenceTTL = 60 * time.Second

// Presence tracks live in-app connections. A connection counts per user, so a user with two
// open tabs stays online until both are gone or their heartbeats expire.
type Presence struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ interfaces.Presence = &Presence{}

func NewPresence(client redis.UniversalClient, ttl time.Duration, opts ...Option) *Presence {
	o := buildOptions(opts)
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{client: client, prefix: o.prefix, ttl: ttl}
}

// TTL returns the heartbeat expiry. Callers refresh well within it.
func (x *Presence) TTL() time.Duration {
	return x.ttl
}

func (x *Presence) key(userID string) string {
	return x.prefix + "presence:" + userID
}

// MarkOnline registers or refreshes connectionID of userID
func (x *Presence) MarkOnline(ctx context.Context, userID, connectionID string) error {
	key := x.key(userID)
	now := time.Now()

	_, err := x.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Add(x.ttl).Unix()), Member: connectionID})
		pipe.Expire(ctx, key, x.ttl)
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark user online",
			goerr.V(model.UserIDKey, userID), goerr.V("connection_id", connectionID))
	}
	return nil
}

// MarkOffline removes connectionID of userID
func (x *Presence) MarkOffline(ctx context.Context, userID, connectionID string) error {
	if err := x.client.ZRem(ctx, x.key(userID), connectionID).Err(); err != nil {
		return goerr.Wrap(err, "failed to mark user offline",
			goerr.V(model.UserIDKey, userID), goerr.V("connection_id", connectionID))
	}
	return nil
}

// IsOnline reports whether userID has at least one connection whose heartbeat has not expired
func (x *Presence) IsOnline(ctx context.Context, userID string) (bool, error) {
	key := x.key(userID)
	now := time.Now().Unix()

	var count *redis.IntCmd
	_, err := x.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// expired connections are dropped before counting
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(now, 10))
		count = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to check presence", goerr.V(model.UserIDKey, userID))
	}
	return count.Val() > 0, nil
}
