package execution

import (
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/google/uuid"
)

// Level is the severity of a log entry
type Level string

// Log levels shown by the execution panel
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one timestamped line of execution output
type LogEntry struct {
	ID        string          `json:"id"`
	RunID     string          `json:"runId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Level     Level           `json:"level"`
	Message   string          `json:"message"`
	NodeID    workflow.NodeID `json:"nodeId,omitempty"`
	NodeName  string          `json:"nodeName,omitempty"`
	Data      map[string]any  `json:"data,omitempty"`
}

// NewLogEntry creates an entry stamped with a fresh id and the current time
func NewLogEntry(level Level, message string) LogEntry {
	return LogEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
}

// ForNode attaches the node the entry is about
func (e LogEntry) ForNode(node *workflow.Node) LogEntry {
	if node != nil {
		e.NodeID = node.ID
		e.NodeName = node.Data.Label
	}
	return e
}

// WithData attaches structured data to the entry
func (e LogEntry) WithData(data map[string]any) LogEntry {
	e.Data = data
	return e
}
