package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to REDIS_ADDR using database 15, which is flushed.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisWorkflowRepository(t *testing.T) {
	client := newTestRedis(t)
	repositoryContract(t, NewRedisWorkflowRepositoryWithClient(client, nil))
}

func TestRedisChangesFromOtherWriters(t *testing.T) {
	client := newTestRedis(t)
	watcher := NewRedisWorkflowRepositoryWithClient(client, nil)
	writer := NewRedisWorkflowRepositoryWithClient(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := watcher.Changes(ctx)
	require.NoError(t, err)

	// Own writes are not reported
	own := chainWorkflow(t, 1)
	require.NoError(t, watcher.Save(ctx, own))

	other := chainWorkflow(t, 1)
	require.NoError(t, writer.Save(ctx, other))

	select {
	case id := <-changes:
		assert.Equal(t, other.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	for range changes {
	}
}

func TestRedisListDropsStaleIDs(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRedisWorkflowRepositoryWithClient(client, nil)
	ctx := context.Background()

	require.NoError(t, client.ZAdd(ctx, workflowListKey, redis.Z{Score: 1, Member: "ghost"}).Err())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	count, err := client.ZCard(ctx, workflowListKey).Result()
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.Get(ctx, workflow.WorkflowID("ghost"))
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}
