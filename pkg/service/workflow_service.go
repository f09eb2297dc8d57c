// Package service implements workflow persistence on top of a
// workflow.Repository: CRUD, export/import and duplication.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/dshills/aihub/pkg/errors"
	"github.com/dshills/aihub/pkg/workflow"
	"go.uber.org/zap"
)

// CopySuffix is appended to the name of a duplicated workflow
const CopySuffix = " (Copy)"

// WorkflowService owns the persisted workflow collection
type WorkflowService struct {
	repo   workflow.Repository
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a WorkflowService
type Option func(*WorkflowService)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *WorkflowService) { s.now = now }
}

// New creates a service over repo
func New(repo workflow.Repository, logger *zap.Logger, opts ...Option) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WorkflowService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds and saves an empty workflow
func (s *WorkflowService) Create(ctx context.Context, name, description string, tags []string) (*workflow.Workflow, error) {
	wf, err := workflow.NewWorkflow(name, description)
	if err != nil {
		return nil, err
	}
	wf.Tags = tags
	if err := s.Save(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Save upserts wf by id and refreshes UpdatedAt.
// A workflow without an id gets one; CreatedAt is set when missing.
func (s *WorkflowService) Save(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil {
		return errors.New("cannot save nil workflow")
	}
	if wf.ID == "" {
		wf.ID = workflow.NewWorkflowID()
	}

	now := s.now()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now
	if wf.Nodes == nil {
		wf.Nodes = make([]*workflow.Node, 0)
	}
	if wf.Connections == nil {
		wf.Connections = make([]*workflow.Connection, 0)
	}

	if err := s.repo.Save(ctx, wf); err != nil {
		return apperrors.Op("saving workflow", wf.ID.String(), err)
	}
	s.logger.Debug("workflow saved",
		zap.String("workflow", wf.ID.String()),
		zap.Int("nodes", len(wf.Nodes)),
		zap.Int("connections", len(wf.Connections)))
	return nil
}

// Get returns the workflow with id or an error wrapping ErrWorkflowNotFound
func (s *WorkflowService) Get(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	wf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Op("loading workflow", id.String(), err)
	}
	return wf, nil
}

// GetAll returns every stored workflow
func (s *WorkflowService) GetAll(ctx context.Context) ([]*workflow.Workflow, error) {
	wfs, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Op("listing workflows", "", err)
	}
	return wfs, nil
}

// Delete removes the workflow with id
func (s *WorkflowService) Delete(ctx context.Context, id workflow.WorkflowID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Op("deleting workflow", id.String(), err)
	}
	s.logger.Debug("workflow deleted", zap.String("workflow", id.String()))
	return nil
}

// Export serializes wf as pretty-printed JSON
func (s *WorkflowService) Export(wf *workflow.Workflow) ([]byte, error) {
	return workflow.Export(wf)
}

// ExportYAML serializes wf as YAML
func (s *WorkflowService) ExportYAML(wf *workflow.Workflow) ([]byte, error) {
	return workflow.ExportYAML(wf)
}

// Import parses a JSON workflow document, gives it a fresh id and saves it.
// Failures are logged and yield nil; Import never returns an error.
func (s *WorkflowService) Import(ctx context.Context, data []byte) *workflow.Workflow {
	wf, err := workflow.Parse(data)
	if err != nil {
		s.logger.Error("failed to import workflow", zap.Error(err))
		return nil
	}
	if err := wf.Validate(); err != nil {
		s.logger.Error("imported workflow is invalid", zap.Error(err))
		return nil
	}

	for _, warning := range workflow.ScanForCredentials(wf) {
		s.logger.Warn("imported workflow contains a credential",
			zap.String("location", warning.Location),
			zap.String("severity", warning.Severity),
			zap.String("detail", warning.Message))
	}

	original := wf.ID
	wf.ID = workflow.NewWorkflowID()
	if err := s.Save(ctx, wf); err != nil {
		s.logger.Error("failed to store imported workflow", zap.Error(err))
		return nil
	}
	s.logger.Info("workflow imported",
		zap.String("workflow", wf.ID.String()),
		zap.String("source_id", original.String()))
	return wf
}

// Duplicate copies the workflow with id under a new id and a " (Copy)" name
func (s *WorkflowService) Duplicate(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := original.Clone()
	dup.ID = workflow.NewWorkflowID()
	dup.Name = original.Name + CopySuffix
	dup.CreatedAt = time.Time{}
	if err := s.Save(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// Watch calls onChange for every workflow written by another process until
// ctx is done. It returns nil right away when the repository cannot observe
// foreign writes.
func (s *WorkflowService) Watch(ctx context.Context, onChange func(workflow.WorkflowID)) error {
	notifier, ok := s.repo.(workflow.ChangeNotifier)
	if !ok {
		s.logger.Debug("repository does not publish changes")
		return nil
	}

	changes, err := notifier.Changes(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch workflows: %w", err)
	}
	for id := range changes {
		s.logger.Debug("workflow changed elsewhere", zap.String("workflow", id.String()))
		onChange(id)
	}
	return nil
}
