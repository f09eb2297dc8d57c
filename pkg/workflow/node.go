package workflow

import (
	"errors"
	"fmt"
)

// NodeType is the category tag carried by every node
type NodeType string

// Node types known to the laboratory catalog
const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeKnowledge NodeType = "knowledge"
	NodeTypeTool      NodeType = "tool"
	NodeTypeMemory    NodeType = "memory"
	NodeTypeGuardrail NodeType = "guardrail"
	NodeTypeEval      NodeType = "eval"
	NodeTypeAction    NodeType = "action"
)

// NodeTypes lists every valid node type in catalog order
var NodeTypes = []NodeType{
	NodeTypeTrigger,
	NodeTypeLLM,
	NodeTypeKnowledge,
	NodeTypeTool,
	NodeTypeMemory,
	NodeTypeGuardrail,
	NodeTypeEval,
	NodeTypeAction,
}

// IsValid reports whether t is one of the known node types
func (t NodeType) IsValid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Position is a canvas-local coordinate, before pan and zoom are applied
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData holds the user-editable fields of a node
type NodeData struct {
	Label       string         `json:"label" yaml:"label"`
	Icon        string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color       string         `json:"color,omitempty" yaml:"color,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]any `json:"config" yaml:"config"`
	Breakpoint  bool           `json:"breakpoint" yaml:"breakpoint"`
}

// Clone returns a deep copy of the data, including nested config values
func (d NodeData) Clone() NodeData {
	out := d
	out.Config = CloneConfig(d.Config)
	return out
}

// Node is a vertex in the workflow graph
type Node struct {
	ID       NodeID   `json:"id" yaml:"id"`
	Type     NodeType `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// NewNode creates a node with a freshly generated id
func NewNode(nodeType NodeType, pos Position, data NodeData) *Node {
	if data.Config == nil {
		data.Config = make(map[string]any)
	}
	return &Node{
		ID:       NewNodeID(),
		Type:     nodeType,
		Position: pos,
		Data:     data,
	}
}

// Validate checks if the node is valid
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.New("node: empty node ID")
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
	}
	if n.Data.Label == "" {
		return fmt.Errorf("node %s: empty label", n.ID)
	}
	return nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Data = n.Data.Clone()
	return &out
}

// CloneConfig deep-copies a config mapping. Nested maps and slices decoded
// from JSON or YAML are copied recursively; other values are shared.
func CloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneConfig(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
