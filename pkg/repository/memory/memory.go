package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository. A single lock guards every collection so that
// RunTransaction is serializable.
type Memory struct {
	s       *store
	task    *taskRepository
	request *requestRepository
	user    *userRepository
}

var _ interfaces.Repository = &Memory{}

type store struct {
	mu sync.RWMutex

	tasks      map[int64]*model.Task
	taskKeys   map[string]int64
	nextTaskID int64

	requests map[model.RequestID]*model.Request
	pending  map[model.PendingKey]model.RequestID

	users map[string]*model.User
}

func New() *Memory {
	s := &store{
		tasks:      make(map[int64]*model.Task),
		taskKeys:   make(map[string]int64),
		nextTaskID: 1,
		requests:   make(map[model.RequestID]*model.Request),
		pending:    make(map[model.PendingKey]model.RequestID),
		users:      make(map[string]*model.User),
	}

	return &Memory{
		s:       s,
		task:    &taskRepository{s: s},
		request: &requestRepository{s: s},
		user:    &userRepository{s: s},
	}
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Request() interfaces.RequestRepository {
	return m.request
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

// RunTransaction holds the store lock for the duration of fn. fn must use tx only;
// calling other repository methods from inside fn deadlocks.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	tx := newTransaction(m.s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (m *Memory) Close() error {
	return nil
}
