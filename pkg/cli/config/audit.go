package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/service/audit"
	"github.com/urfave/cli/v3"
)

type Audit struct {
	bucket string
	prefix string
}

func (x *Audit) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "audit-bucket",
			Usage:       "Cloud Storage bucket for resolved request archives. Archiving is disabled when empty",
			Category:    "Audit",
			Destination: &x.bucket,
			Sources:     cli.EnvVars("FLOWSYNC_AUDIT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "audit-prefix",
			Usage:       "Object name prefix for archives",
			Category:    "Audit",
			Value:       "requests",
			Destination: &x.prefix,
			Sources:     cli.EnvVars("FLOWSYNC_AUDIT_PREFIX"),
		},
	}
}

func (x Audit) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure creates the archive writer, or returns nil when no bucket is set
func (x *Audit) Configure(ctx context.Context) (*audit.Writer, error) {
	if x.bucket == "" {
		return nil, nil
	}
	w, err := audit.New(ctx, x.bucket, x.prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize audit writer")
	}
	return w, nil
}
