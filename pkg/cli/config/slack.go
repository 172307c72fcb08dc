package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken string
	cacheTTL time.Duration
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for direct message notifications)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("FLOWSYNC_SLACK_BOT_TOKEN"),
		},
		&cli.DurationFlag{
			Name:        "slack-user-cache-ttl",
			Usage:       "How long a Slack user looked up by email is cached",
			Category:    "Slack",
			Value:       slack.DefaultCacheTTL,
			Destination: &x.cacheTTL,
			Sources:     cli.EnvVars("FLOWSYNC_SLACK_USER_CACHE_TTL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Duration("user-cache-ttl", x.cacheTTL),
	)
}

// IsConfigured reports whether Slack delivery is enabled
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure creates the Slack service, or returns nil when no bot token is set
func (x *Slack) Configure() (slack.Service, error) {
	if !x.IsConfigured() {
		return nil, nil
	}

	svc, err := slack.New(x.botToken, slack.WithCacheTTL(x.cacheTTL))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
