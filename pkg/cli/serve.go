package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/secmon-lab/flowsync/pkg/cli/config"
	httpctrl "github.com/secmon-lab/flowsync/pkg/controller/http"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/service/kpi"
	"github.com/secmon-lab/flowsync/pkg/service/notify"
	"github.com/secmon-lab/flowsync/pkg/service/pubsub"
	"github.com/secmon-lab/flowsync/pkg/service/slack"
	"github.com/secmon-lab/flowsync/pkg/service/worker"
	"github.com/secmon-lab/flowsync/pkg/usecase"
	"github.com/secmon-lab/flowsync/pkg/utils/async"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
	"github.com/secmon-lab/flowsync/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var sweepInterval time.Duration
	var appCfg config.App
	var repoCfg config.Repository
	var slackCfg config.Slack
	var redisCfg config.Redis
	var auditCfg config.Audit
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("FLOWSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "Interval of the delayed sweep (0 disables the in-process worker)",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("FLOWSYNC_SWEEP_INTERVAL"),
			Destination: &sweepInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, redisCfg.Flags()...)
	flags = append(flags, auditCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"app", appCfg,
				"repository", repoCfg,
				"slack", slackCfg,
				"redis", redisCfg,
				"audit", auditCfg,
				"auth", authCfg,
			)

			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			authn, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)")
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			if err := app.SeedUsers(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to seed user roster")
			}

			group := &async.Group{}
			ucOpts := []usecase.Option{
				usecase.WithPolicy(app.Policy()),
				usecase.WithAsyncGroup(group),
			}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}

			redisClient, err := redisCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize redis")
			}
			if redisClient != nil {
				defer safe.Close(ctx, redisClient)
			}

			var httpOpts []httpctrl.Options
			ucOpts = append(ucOpts, usecase.WithNotifier(buildNotifier(repo, slackSvc, redisClient, redisCfg.PresenceTTL(), &httpOpts)))

			if redisClient != nil {
				ucOpts = append(ucOpts, usecase.WithRecomputer(kpi.NewEnqueuer(redisClient)))
				logging.Default().Info("KPI recomputation jobs enabled", "queue", kpi.Queue)
			} else {
				logging.Default().Info("Redis not configured, KPI recomputation is disabled")
			}

			auditWriter, err := auditCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if auditWriter != nil {
				defer safe.Close(ctx, auditWriter)
				ucOpts = append(ucOpts, usecase.WithAuditSink(auditWriter))
				logging.Default().Info("Audit archive enabled")
			}

			uc := usecase.New(repo, ucOpts...)

			var sweepWorker *worker.DelayedSweepWorker
			if sweepInterval > 0 {
				sweepWorker = worker.NewDelayedSweepWorker(uc.Task, sweepInterval)
				if err := sweepWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start delayed sweep worker")
				}
			}

			httpOpts = append(httpOpts, httpctrl.WithAuthenticator(authn))
			server := newHTTPServer(ctx, addr, httpctrl.New(uc, httpOpts...))

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			stopWorker := func() {
				if sweepWorker != nil {
					sweepWorker.Stop()
				}
			}

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				stopWorker()
				uc.Wait()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
				stopWorker()

				// pending notifications and recomputations are drained even when shutdown times out
				if err := gracefulShutdown(server, shutdownTimeout, uc.Wait); err != nil {
					return err
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

const shutdownTimeout = 10 * time.Second

// newHTTPServer builds the server whose request contexts are cancelled when Shutdown starts.
// Long lived streams (server-sent events) end on that cancellation instead of holding Shutdown.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancel)
	return server
}

// gracefulShutdown stops server within timeout and then runs drain, whatever Shutdown returned.
func gracefulShutdown(server *http.Server, timeout time.Duration, drain func()) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	drain()
	if err != nil {
		return goerr.Wrap(err, "failed to shutdown server gracefully")
	}
	return nil
}

// buildNotifier composes the delivery channels that are configured. The in-app channel needs
// Redis and the out-of-app channel needs Slack; without either, notifications are only logged.
func buildNotifier(repo interfaces.Repository, slackSvc slack.Service, redisClient *redis.Client, presenceTTL time.Duration, httpOpts *[]httpctrl.Options) interfaces.Notifier {
	var inApp, outOfApp interfaces.Notifier
	var presence interfaces.Presence

	if slackSvc != nil {
		outOfApp = slack.NewNotifier(slackSvc, repo.User())
		logging.Default().Info("Slack direct message delivery enabled")
	}

	if redisClient != nil {
		channel := pubsub.NewChannel(redisClient)
		p := pubsub.NewPresence(redisClient, presenceTTL)
		inApp = channel
		presence = p
		*httpOpts = append(*httpOpts, httpctrl.WithEventStream(channel, p))
		logging.Default().Info("In-app notification channel enabled")
	}

	if inApp == nil && outOfApp == nil {
		logging.Default().Warn("No notification channel configured, notifications are dropped")
		return nil
	}
	return notify.NewRouter(inApp, outOfApp, presence)
}
