package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

const uniqueViolation = "23505"

type Postgres struct {
	pool    *pgxpool.Pool
	schema  string
	task    *taskRepository
	request *requestRepository
	user    *userRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*pgxpool.Config)

// WithSchema sets the search_path of every connection. The schema is created by Migrate.
func WithSchema(schema string) Option {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
}

func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres DSN")
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to connect postgres")
	}

	return &Postgres{
		pool:    pool,
		schema:  cfg.ConnConfig.RuntimeParams["search_path"],
		task:    &taskRepository{db: pool},
		request: &requestRepository{db: pool},
		user:    &userRepository{db: pool},
	}, nil
}

// Migrate creates the tables and indexes when they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if p.schema != "" {
		if _, err := p.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{p.schema}.Sanitize()); err != nil {
			return goerr.Wrap(err, "failed to create schema", goerr.V("schema", p.schema))
		}
	}
	for _, stmt := range schema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to apply schema", goerr.V("statement", stmt))
		}
	}
	logging.From(ctx).Info("postgres schema applied", "statements", len(schema))
	return nil
}

func (p *Postgres) Task() interfaces.TaskRepository {
	return p.task
}

func (p *Postgres) Request() interfaces.RequestRepository {
	return p.request
}

func (p *Postgres) User() interfaces.UserRepository {
	return p.user
}

// RunTransaction runs fn in a read committed transaction. Rows read through tx are locked
// with SELECT ... FOR UPDATE until commit.
func (p *Postgres) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	pgTx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := pgTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logging.From(ctx).Warn("failed to rollback transaction", "error", err.Error())
		}
	}()

	if err := fn(ctx, &transaction{tx: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func isUniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr, true
	}
	return nil, false
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
