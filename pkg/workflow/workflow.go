package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Workflow is the persisted aggregate: a named graph of nodes and connections
type Workflow struct {
	ID          WorkflowID    `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []*Node       `json:"nodes" yaml:"nodes"`
	Connections []*Connection `json:"connections" yaml:"connections"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" yaml:"updatedAt"`
}

// NewWorkflow creates a new empty workflow with the given name and description
func NewWorkflow(name, description string) (*Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("workflow name cannot be empty")
	}

	now := time.Now().UTC()
	return &Workflow{
		ID:          NewWorkflowID(),
		Name:        name,
		Description: description,
		Nodes:       make([]*Node, 0),
		Connections: make([]*Connection, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// FindNode returns the node with the given id
func (w *Workflow) FindNode(id NodeID) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return nil, false
}

// AddNode adds a node to the workflow.
// The node id must be non-empty and unique within the graph.
func (w *Workflow) AddNode(node *Node) error {
	if node == nil {
		return errors.New("cannot add nil node")
	}
	if node.ID == "" {
		return errors.New("cannot add node with empty ID")
	}
	if _, exists := w.FindNode(node.ID); exists {
		return fmt.Errorf("node already exists: %s", node.ID)
	}
	if node.Data.Config == nil {
		node.Data.Config = make(map[string]any)
	}

	w.Nodes = append(w.Nodes, node)
	return nil
}

// RemoveNode removes a node from the workflow and all connections touching it
func (w *Workflow) RemoveNode(id NodeID) error {
	found := false
	newNodes := make([]*Node, 0, len(w.Nodes))
	for _, node := range w.Nodes {
		if node.ID != id {
			newNodes = append(newNodes, node)
		} else {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	w.Nodes = newNodes

	newConns := make([]*Connection, 0, len(w.Connections))
	for _, conn := range w.Connections {
		if !conn.Touches(id) {
			newConns = append(newConns, conn)
		}
	}
	w.Connections = newConns

	return nil
}

// MoveNode sets a node's canvas position
func (w *Workflow) MoveNode(id NodeID, pos Position) error {
	node, ok := w.FindNode(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	node.Position = pos
	return nil
}

// UpdateNodeData replaces a node's data with data
func (w *Workflow) UpdateNodeData(id NodeID, data NodeData) error {
	node, ok := w.FindNode(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if data.Config == nil {
		data.Config = make(map[string]any)
	}
	node.Data = data
	return nil
}

// HasConnection reports whether source is already connected to target
func (w *Workflow) HasConnection(source, target NodeID) bool {
	for _, conn := range w.Connections {
		if conn.Source == source && conn.Target == target {
			return true
		}
	}
	return false
}

// Connect creates a connection from source to target.
// Self connections, unknown endpoints and duplicate pairs are rejected.
func (w *Workflow) Connect(source, target NodeID) (*Connection, error) {
	conn := &Connection{
		ID:     NewConnectionID(),
		Source: source,
		Target: target,
	}
	if err := w.AddConnection(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// AddConnection adds an existing connection record to the workflow.
// A missing id is generated.
func (w *Workflow) AddConnection(conn *Connection) error {
	if conn == nil {
		return errors.New("cannot add nil connection")
	}
	if conn.Source == conn.Target {
		return fmt.Errorf("%w: %s", ErrSelfConnection, conn.Source)
	}
	if _, ok := w.FindNode(conn.Source); !ok {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, conn.Source)
	}
	if _, ok := w.FindNode(conn.Target); !ok {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, conn.Target)
	}
	if w.HasConnection(conn.Source, conn.Target) {
		return fmt.Errorf("%w: from %s to %s", ErrDuplicateConnection, conn.Source, conn.Target)
	}

	if conn.ID == "" {
		conn.ID = NewConnectionID()
	}

	w.Connections = append(w.Connections, conn)
	return nil
}

// RemoveConnection removes a connection by id
func (w *Workflow) RemoveConnection(id ConnectionID) error {
	found := false
	newConns := make([]*Connection, 0, len(w.Connections))
	for _, conn := range w.Connections {
		if conn.ID != id {
			newConns = append(newConns, conn)
		} else {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}

	w.Connections = newConns
	return nil
}

// Incoming returns the connections whose target is id
func (w *Workflow) Incoming(id NodeID) []*Connection {
	var out []*Connection
	for _, conn := range w.Connections {
		if conn.Target == id {
			out = append(out, conn)
		}
	}
	return out
}

// Outgoing returns the connections whose source is id
func (w *Workflow) Outgoing(id NodeID) []*Connection {
	var out []*Connection
	for _, conn := range w.Connections {
		if conn.Source == id {
			out = append(out, conn)
		}
	}
	return out
}

// Clone returns a deep copy of the workflow
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	out.Nodes = make([]*Node, len(w.Nodes))
	for i, node := range w.Nodes {
		out.Nodes[i] = node.Clone()
	}
	out.Connections = make([]*Connection, len(w.Connections))
	for i, conn := range w.Connections {
		c := *conn
		out.Connections[i] = &c
	}
	if w.Tags != nil {
		out.Tags = append([]string(nil), w.Tags...)
	}
	return &out
}

// Validate checks all workflow invariants
func (w *Workflow) Validate() error {
	var validationErrors []string

	if w.ID == "" {
		validationErrors = append(validationErrors, "workflow must have an ID")
	}
	if strings.TrimSpace(w.Name) == "" {
		validationErrors = append(validationErrors, "workflow must have a name")
	}

	nodeIDs := make(map[NodeID]bool)
	for _, node := range w.Nodes {
		if node == nil {
			validationErrors = append(validationErrors, "found nil node")
			continue
		}
		if err := node.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
		if nodeIDs[node.ID] {
			validationErrors = append(validationErrors, fmt.Sprintf("duplicate node ID found: %s", node.ID))
		}
		nodeIDs[node.ID] = true
	}

	type pair struct{ from, to NodeID }
	seen := make(map[pair]bool)
	for _, conn := range w.Connections {
		if conn == nil {
			validationErrors = append(validationErrors, "found nil connection")
			continue
		}
		if err := conn.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
		if !nodeIDs[conn.Source] {
			validationErrors = append(validationErrors, fmt.Sprintf("connection %s references unknown source node %s", conn.ID, conn.Source))
		}
		if !nodeIDs[conn.Target] {
			validationErrors = append(validationErrors, fmt.Sprintf("connection %s references unknown target node %s", conn.ID, conn.Target))
		}
		p := pair{conn.Source, conn.Target}
		if seen[p] {
			validationErrors = append(validationErrors, fmt.Sprintf("duplicate connection from %s to %s", conn.Source, conn.Target))
		}
		seen[p] = true
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, "; "))
	}

	return nil
}
