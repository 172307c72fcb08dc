package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

func TestUserRepository(t *testing.T) {
	runAllBackends(t, runUserRepositoryTest)
}

func runUserRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Put upserts and keeps creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		u := newTestUser("member-1", types.RoleMember)
		u.LeaderID = "leader-1"
		gt.NoError(t, repo.User().Put(ctx, u)).Required()

		first, err := repo.User().Get(ctx, u.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, first.LeaderID).Equal("leader-1")
		gt.Bool(t, first.CreatedAt.IsZero()).False()

		u.Name = "renamed"
		gt.NoError(t, repo.User().Put(ctx, u)).Required()

		second, err := repo.User().Get(ctx, u.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, second.Name).Equal("renamed")
		gt.Bool(t, second.CreatedAt.Equal(first.CreatedAt)).True()

		users, err := repo.User().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, users).Length(1)
	})

	t.Run("Get returns not found for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.User().Get(context.Background(), "nobody")
		gt.Error(t, err).Is(model.ErrUserNotFound)
	})

	t.Run("UpdateUser in transaction deactivates the account", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.User().Put(ctx, newTestUser("member-1", types.RoleMember))).Required()

		err := repo.RunTransaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
			u, err := tx.GetUser(ctx, "member-1")
			if err != nil {
				return err
			}
			u.Active = false
			return tx.UpdateUser(ctx, u)
		})
		gt.NoError(t, err).Required()

		got, err := repo.User().Get(ctx, "member-1")
		gt.NoError(t, err).Required()
		gt.Bool(t, got.Active).False()
	})
}
