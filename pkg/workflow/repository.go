package workflow

import "context"

// Repository defines the interface for workflow persistence
type Repository interface {
	// Save upserts a workflow by ID
	Save(ctx context.Context, wf *Workflow) error

	// Get retrieves a workflow by ID, returning ErrWorkflowNotFound when absent
	Get(ctx context.Context, id WorkflowID) (*Workflow, error)

	// Delete removes a workflow, returning ErrWorkflowNotFound when absent
	Delete(ctx context.Context, id WorkflowID) error

	// List returns all stored workflows
	List(ctx context.Context) ([]*Workflow, error)
}

// ChangeNotifier is implemented by repositories that can observe writes made
// by other processes sharing the same storage.
type ChangeNotifier interface {
	// Changes streams the ids of workflows written elsewhere until ctx is done
	Changes(ctx context.Context) (<-chan WorkflowID, error)
}
