package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
)

type Firestore struct {
	client  *firestore.Client
	names   *collections
	task    *taskRepository
	request *requestRepository
	user    *userRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.names.prefix = prefix
	}
}

func WithDatabaseID(databaseID string) Option {
	return func(f *Firestore) {
		f.names.databaseID = databaseID
	}
}

func New(ctx context.Context, projectID string, opts ...Option) (*Firestore, error) {
	f := &Firestore{names: &collections{}}
	for _, opt := range opts {
		opt(f)
	}

	databaseID := f.names.databaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f.client = client
	f.task = &taskRepository{client: client, names: f.names}
	f.request = &requestRepository{client: client, names: f.names}
	f.user = &userRepository{client: client, names: f.names}

	return f, nil
}

func (f *Firestore) Task() interfaces.TaskRepository {
	return f.task
}

func (f *Firestore) Request() interfaces.RequestRepository {
	return f.request
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

// RunTransaction runs fn in a Firestore transaction. Firestore retries fn on contention, so
// fn must not have side effects outside tx. All reads must happen before the first write.
func (f *Firestore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	return f.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, newTransaction(f.client, f.names, ftx))
	})
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

type collections struct {
	prefix     string
	databaseID string
}

func (c *collections) name(base string) string {
	if c.prefix != "" {
		return c.prefix + "_" + base
	}
	return base
}

func (c *collections) tasks() string    { return c.name("tasks") }
func (c *collections) taskKeys() string { return c.name("task_keys") }
func (c *collections) requests() string { return c.name("requests") }
func (c *collections) pending() string  { return c.name("pending_requests") }
func (c *collections) users() string    { return c.name("users") }
func (c *collections) counters() string { return c.name("counters") }
