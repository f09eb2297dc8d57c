package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// repositoryContract runs the behavior every workflow.Repository shares
func repositoryContract(t *testing.T, repo workflow.Repository) {
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	first := chainWorkflow(t, 2)
	first.Name = "Demo"
	second := chainWorkflow(t, 3)

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.Save(ctx, second))

		loaded, err := repo.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Demo", loaded.Name)
		assert.Len(t, loaded.Nodes, 2)
		assert.Len(t, loaded.Connections, 1)
		assert.True(t, first.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("upsert keeps order", func(t *testing.T) {
		first.Name = "Demo v2"
		require.NoError(t, repo.Save(ctx, first))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, "Demo v2", list[0].Name)
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, first.ID))
		assert.ErrorIs(t, repo.Delete(ctx, first.ID), workflow.ErrWorkflowNotFound)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)
	})

	t.Run("rejects nil", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, nil))
	})
}

func TestFileWorkflowRepository(t *testing.T) {
	repo, err := NewFileWorkflowRepository(t.TempDir(), nil)
	require.NoError(t, err)
	repositoryContract(t, repo)
}

func TestMemoryRepository(t *testing.T) {
	repositoryContract(t, NewMemoryRepository())
}

func TestSQLiteWorkflowRepository(t *testing.T) {
	repo, err := NewSQLiteWorkflowRepository(filepath.Join(t.TempDir(), "aihub.db"))
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()
	repositoryContract(t, repo)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	wf := chainWorkflow(t, 1)
	require.NoError(t, repo.Save(ctx, wf))

	wf.Name = "changed after save"
	loaded, err := repo.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bench", loaded.Name)
}

func TestCollectionStoreMalformedData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "workflows.json"), []byte("{not json"), 0644))

	core, logs := observer.New(zap.WarnLevel)
	store, err := NewCollectionStore(dir, zap.New(core))
	require.NoError(t, err)

	items, err := LoadCollection[*workflow.Workflow](store, WorkflowsCollection)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, logs.FilterMessage("discarding malformed collection").Len())

	// The next write replaces the bad file
	repo := NewFileWorkflowRepositoryWithStore(store)
	require.NoError(t, repo.Save(context.Background(), chainWorkflow(t, 1)))
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCollectionStoreSkipsBadItems(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`[{"text":"ok"}, 42]`), 0644))

	core, logs := observer.New(zap.WarnLevel)
	store, err := NewCollectionStore(dir, zap.New(core))
	require.NoError(t, err)

	type note struct {
		Text string `json:"text"`
	}
	items, err := LoadCollection[note](store, "notes")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].Text)
	assert.Equal(t, 1, logs.FilterMessage("skipping malformed collection item").Len())
}

func TestCollectionStoreWritesDatesAsRFC3339(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileWorkflowRepository(dir, nil)
	require.NoError(t, err)

	wf := chainWorkflow(t, 1)
	wf.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(context.Background(), wf))

	data, err := os.ReadFile(filepath.Join(dir, "workflows.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"createdAt": "2024-03-01T12:00:00Z"`)
}

func TestUpdateCollectionErrorLeavesDataUntouched(t *testing.T) {
	store, err := NewCollectionStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, StoreCollection(store, "tags", []string{"a"}))

	err = UpdateCollection(store, "tags", func(items []string) ([]string, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	items, err := LoadCollection[string](store, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
}

func TestSQLiteExecutionLogs(t *testing.T) {
	repo, err := NewSQLiteWorkflowRepository(filepath.Join(t.TempDir(), "aihub.db"))
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	ctx := context.Background()
	wf := chainWorkflow(t, 1)
	require.NoError(t, repo.Save(ctx, wf))

	base := time.Now().UTC()
	entries := []execution.LogEntry{
		{ID: "1", RunID: "run", Timestamp: base, Level: execution.LevelInfo, Message: "start"},
		execution.NewLogEntry(execution.LevelSuccess, "node done").ForNode(wf.Nodes[0]).WithData(map[string]any{"tokens": 42}),
		{ID: "3", RunID: "run", Timestamp: base.Add(2 * time.Second), Level: execution.LevelSuccess, Message: "finished"},
	}
	entries[1].Timestamp = base.Add(time.Second)
	require.NoError(t, repo.AppendLogs(ctx, wf.ID, entries))

	all, err := repo.ListLogs(ctx, wf.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "start", all[0].Message)
	assert.Equal(t, wf.Nodes[0].ID, all[1].NodeID)
	assert.Equal(t, float64(42), all[1].Data["tokens"])

	recent, err := repo.ListLogs(ctx, wf.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "node done", recent[0].Message)
	assert.Equal(t, "finished", recent[1].Message)

	// Logs go with their workflow
	require.NoError(t, repo.Delete(ctx, wf.ID))
	gone, err := repo.ListLogs(ctx, wf.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aihub.db")

	repo, err := NewSQLiteWorkflowRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteWorkflowRepository(path)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	var version int
	require.NoError(t, repo.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version))
	assert.Equal(t, MigrationVersion, version)
}
