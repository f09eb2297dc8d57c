package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/aihub/pkg/workflow"
)

// MemoryRepository is an in-process workflow.Repository. Nothing survives
// the process; tests and embedders use it.
type MemoryRepository struct {
	mu    sync.RWMutex
	order []workflow.WorkflowID
	items map[workflow.WorkflowID]*workflow.Workflow
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[workflow.WorkflowID]*workflow.Workflow)}
}

func (r *MemoryRepository) Save(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil || wf.ID == "" {
		return fmt.Errorf("workflow must have an ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[wf.ID]; !ok {
		r.order = append(r.order, wf.ID)
	}
	r.items[wf.ID] = wf.Clone()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	return wf.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id workflow.WorkflowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*workflow.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*workflow.Workflow, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}
