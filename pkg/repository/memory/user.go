package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
)

type userRepository struct {
	s *store
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.putUser(user)
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.getUser(id)
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u.Copy())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (s *store) putUser(user *model.User) {
	now := time.Now().UTC()
	stored := user.Copy()
	if existing, ok := s.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.users[stored.ID] = stored
}

func (s *store) getUser(id string) (*model.User, error) {
	u, exists := s.users[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrUserNotFound, "user not found", goerr.V(model.UserIDKey, id))
	}
	return u.Copy(), nil
}
