package workflow

import (
	"errors"

	"github.com/google/uuid"
)

// Common workflow errors
var (
	// ErrWorkflowNotFound is returned when a workflow cannot be found
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNodeNotFound is returned when a node id does not exist in the graph
	ErrNodeNotFound = errors.New("node not found")

	// ErrConnectionNotFound is returned when a connection id does not exist in the graph
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrDuplicateConnection is returned when a (source, target) pair is already connected
	ErrDuplicateConnection = errors.New("connection already exists")

	// ErrSelfConnection is returned when a connection would join a node to itself
	ErrSelfConnection = errors.New("cannot connect a node to itself")
)

// WorkflowID is a unique identifier for a workflow
type WorkflowID string

// String returns the string representation of the WorkflowID
func (w WorkflowID) String() string {
	return string(w)
}

// NewWorkflowID generates a new unique WorkflowID
func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.New().String())
}

// NodeID is a unique identifier for a node within a workflow
type NodeID string

// String returns the string representation of the NodeID
func (n NodeID) String() string {
	return string(n)
}

// NewNodeID generates a new unique NodeID
func NewNodeID() NodeID {
	return NodeID("node-" + uuid.New().String())
}

// ConnectionID is a unique identifier for a connection within a workflow
type ConnectionID string

// String returns the string representation of the ConnectionID
func (c ConnectionID) String() string {
	return string(c)
}

// NewConnectionID generates a new unique ConnectionID
func NewConnectionID() ConnectionID {
	return ConnectionID("conn-" + uuid.New().String())
}
