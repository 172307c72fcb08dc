package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// Redis configures the connection shared by the in-app channel, presence and the KPI queue
type Redis struct {
	addr        string
	password    string
	db          int
	presenceTTL time.Duration
}

func (x *Redis) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port). In-app notifications, presence and KPI jobs are disabled when empty",
			Category:    "Redis",
			Destination: &x.addr,
			Sources:     cli.EnvVars("FLOWSYNC_REDIS_ADDR"),
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Redis",
			Destination: &x.password,
			Sources:     cli.EnvVars("FLOWSYNC_REDIS_PASSWORD"),
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Redis",
			Destination: &x.db,
			Sources:     cli.EnvVars("FLOWSYNC_REDIS_DB"),
		},
		&cli.DurationFlag{
			Name:        "presence-ttl",
			Usage:       "How long a user counts as online after the last heartbeat",
			Category:    "Redis",
			Value:       time.Minute,
			Destination: &x.presenceTTL,
			Sources:     cli.EnvVars("FLOWSYNC_PRESENCE_TTL"),
		},
	}
}

func (x Redis) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", x.addr),
		slog.Int("password.len", len(x.password)),
		slog.Int("db", x.db),
		slog.Duration("presence-ttl", x.presenceTTL),
	)
}

func (x *Redis) IsConfigured() bool {
	return x.addr != ""
}

func (x *Redis) PresenceTTL() time.Duration {
	return x.presenceTTL
}

// Configure connects to Redis, or returns nil when no address is set
func (x *Redis) Configure(ctx context.Context) (*redis.Client, error) {
	if !x.IsConfigured() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     x.addr,
		Password: x.password,
		DB:       x.db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", x.addr))
	}
	return client, nil
}
