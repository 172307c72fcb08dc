package repository_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/repository/firestore"
	"github.com/secmon-lab/flowsync/pkg/repository/memory"
	"github.com/secmon-lab/flowsync/pkg/repository/postgres"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	repo, err := firestore.New(ctx, projectID,
		firestore.WithDatabaseID(databaseID),
		firestore.WithCollectionPrefix(prefix),
	)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	repo, err := postgres.New(ctx, dsn, postgres.WithSchema(schema))
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Migrate(ctx)).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func runAllBackends(t *testing.T, run func(t *testing.T, newRepo repoFactory)) {
	t.Run("memory", func(t *testing.T) { run(t, newMemoryRepository) })
	t.Run("firestore", func(t *testing.T) { run(t, newFirestoreRepository) })
	t.Run("postgres", func(t *testing.T) { run(t, newPostgresRepository) })
}

// baseTime has no sub-microsecond part so that it survives every backend unchanged.
var baseTime = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func randomTaskKey() string {
	return fmt.Sprintf("%05d", rand.IntN(100000))
}

func newTestTask(t *testing.T, key string, ownerID string, created time.Time) *model.Task {
	t.Helper()
	task, err := model.NewTask(sla.DefaultPolicy(), key, "task "+key, types.PriorityRegular, ownerID, created)
	gt.NoError(t, err).Required()
	return task
}

func newTestUser(id string, role types.Role) *model.User {
	return &model.User{
		ID:     id,
		Name:   "name of " + id,
		Email:  id + "@example.com",
		Role:   role,
		Active: true,
	}
}
