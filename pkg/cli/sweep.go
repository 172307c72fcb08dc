package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/cli/config"
	"github.com/secmon-lab/flowsync/pkg/usecase"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSweep() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "sweep",
		Usage: "Mark every overdue opened task as delayed once and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithPolicy(app.Policy()))
			changed, err := uc.Task.SweepDelayed(ctx)
			if err != nil {
				return goerr.Wrap(err, "delayed sweep failed")
			}

			logging.Default().Info("Delayed sweep completed", "changed", changed)
			return nil
		},
	}
}
