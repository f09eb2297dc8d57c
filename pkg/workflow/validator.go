package workflow

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/workflow.schema.json
var workflowSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(workflowSchema)

// ValidateDocument validates raw workflow JSON against the workflow schema
func ValidateDocument(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty workflow document")
	}

	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// TopologicalSort orders the workflow's node ids so every connection points forward
func TopologicalSort(wf *Workflow) ([]NodeID, error) {
	if wf == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	adjacency := make(map[NodeID][]NodeID)
	inDegree := make(map[NodeID]int)

	for _, node := range wf.Nodes {
		inDegree[node.ID] = 0
	}

	for _, conn := range wf.Connections {
		adjacency[conn.Source] = append(adjacency[conn.Source], conn.Target)
		inDegree[conn.Target]++
	}

	// Kahn's algorithm, seeded in node order so the result is deterministic
	queue := make([]NodeID, 0)
	for _, node := range wf.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	result := make([]NodeID, 0, len(wf.Nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, neighbor := range adjacency[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(wf.Nodes) {
		return nil, errors.New("workflow contains a cycle (circular dependency)")
	}

	return result, nil
}
