package errors

import (
	"fmt"
	"time"
)

// OperationalError records which persistence operation failed and for which
// workflow. Kind is classified from the cause when the error is built.
type OperationalError struct {
	Operation  string
	WorkflowID string
	Kind       Kind
	Timestamp  time.Time
	Cause      error
}

// Op wraps cause with the operation and workflow it concerned.
// It returns nil when cause is nil.
//
//	if err := repo.Save(ctx, wf); err != nil {
//	    return errors.Op("saving workflow", wf.ID.String(), err)
//	}
func Op(operation, workflowID string, cause error) error {
	if cause == nil {
		return nil
	}
	return &OperationalError{
		Operation:  operation,
		WorkflowID: workflowID,
		Kind:       Classify(cause),
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// Error formats as "operation (kind): workflow=id: cause"
func (e *OperationalError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("%s (%s): %v", e.Operation, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s (%s): workflow=%s: %v", e.Operation, e.Kind, e.WorkflowID, e.Cause)
}

func (e *OperationalError) Unwrap() error {
	return e.Cause
}
