package storage

import (
	"context"
	"fmt"

	"github.com/dshills/aihub/pkg/workflow"
	"go.uber.org/zap"
)

// WorkflowsCollection is the collection name workflows are stored under
const WorkflowsCollection = "workflows"

// FileWorkflowRepository implements workflow.Repository over the
// "workflows" collection of a CollectionStore.
type FileWorkflowRepository struct {
	store *CollectionStore
}

// NewFileWorkflowRepository creates a repository storing workflows.json in dir
func NewFileWorkflowRepository(dir string, logger *zap.Logger) (*FileWorkflowRepository, error) {
	store, err := NewCollectionStore(dir, logger)
	if err != nil {
		return nil, err
	}
	return &FileWorkflowRepository{store: store}, nil
}

// NewFileWorkflowRepositoryWithStore shares an existing collection store
func NewFileWorkflowRepositoryWithStore(store *CollectionStore) *FileWorkflowRepository {
	return &FileWorkflowRepository{store: store}
}

// Save upserts wf by id, keeping the position of an existing entry
func (r *FileWorkflowRepository) Save(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("cannot save nil workflow")
	}
	if wf.ID == "" {
		return fmt.Errorf("workflow must have an ID")
	}

	return UpdateCollection(r.store, WorkflowsCollection, func(items []*workflow.Workflow) ([]*workflow.Workflow, error) {
		for i, existing := range items {
			if existing.ID == wf.ID {
				items[i] = wf
				return items, nil
			}
		}
		return append(items, wf), nil
	})
}

// Get retrieves a workflow by id
func (r *FileWorkflowRepository) Get(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	items, err := LoadCollection[*workflow.Workflow](r.store, WorkflowsCollection)
	if err != nil {
		return nil, err
	}
	for _, wf := range items {
		if wf.ID == id {
			return wf, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
}

// Delete removes a workflow by id
func (r *FileWorkflowRepository) Delete(ctx context.Context, id workflow.WorkflowID) error {
	return UpdateCollection(r.store, WorkflowsCollection, func(items []*workflow.Workflow) ([]*workflow.Workflow, error) {
		for i, wf := range items {
			if wf.ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	})
}

// List returns all workflows in insertion order
func (r *FileWorkflowRepository) List(ctx context.Context) ([]*workflow.Workflow, error) {
	return LoadCollection[*workflow.Workflow](r.store, WorkflowsCollection)
}
