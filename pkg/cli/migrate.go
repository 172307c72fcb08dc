package cli

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/cli/config"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := repoCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview changes without applying (firestore only)",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or the PostgreSQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)

			case config.BackendPostgres:
				if dryRun {
					return goerr.Wrap(config.ErrInvalidConfig, "--dry-run is not supported for postgres")
				}
				repo, err := repoCfg.ConfigurePostgres(ctx)
				if err != nil {
					return err
				}
				defer func() {
					if err := repo.Close(); err != nil {
						logging.Default().Error("failed to close repository", "error", err.Error())
					}
				}()
				if err := repo.Migrate(ctx); err != nil {
					return goerr.Wrap(err, "failed to migrate postgres schema")
				}
				logging.Default().Info("PostgreSQL schema is up to date")
				return nil

			default:
				logging.Default().Info("Nothing to migrate", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if projectID == "" {
		return goerr.Wrap(config.ErrInvalidConfig, "firestore-project-id is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := fireconf.New(ctx, projectID, databaseID, getIndexConfig(),
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
	} else {
		logger.Info("Applying migrations")
	}

	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations", goerr.V("dry_run", dryRun))
	}

	logger.Info("Migrations completed", "dry_run", dryRun)
	return nil
}

// getIndexConfig returns the Firestore composite indexes used by the queries of the
// firestore repository
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "tasks",
				Indexes: []fireconf.Index{
					// ListOverdue: status == OPENED, deadline < now
					{
						Fields: []fireconf.IndexField{
							{Path: "status", Order: fireconf.OrderAscending},
							{Path: "deadline", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "requests",
				Indexes: []fireconf.Index{
					// ListByKind: kind == ?, submitted_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "kind", Order: fireconf.OrderAscending},
							{Path: "submitted_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
