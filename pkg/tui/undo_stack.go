package tui

import (
	"errors"

	"github.com/dshills/aihub/pkg/workflow"
)

// UndoStack keeps snapshots of the graph. The snapshot at the cursor is the
// current state, so the first Push records the baseline and Undo is only
// possible once a second state exists.
type UndoStack struct {
	snapshots []*workflow.Workflow
	cursor    int
	capacity  int
}

// NewUndoStack creates a new undo stack with the specified capacity
func NewUndoStack(capacity int) *UndoStack {
	if capacity <= 0 {
		capacity = 100
	}
	return &UndoStack{
		snapshots: make([]*workflow.Workflow, 0, capacity),
		cursor:    -1,
		capacity:  capacity,
	}
}

// Push records the state of wf and drops any redo history
func (u *UndoStack) Push(wf *workflow.Workflow) error {
	if wf == nil {
		return errors.New("cannot push nil workflow")
	}

	if u.cursor < len(u.snapshots)-1 {
		u.snapshots = u.snapshots[:u.cursor+1]
	}

	// Oldest snapshot falls off when full
	if len(u.snapshots) >= u.capacity {
		copy(u.snapshots, u.snapshots[1:])
		u.snapshots = u.snapshots[:len(u.snapshots)-1]
	}
	u.snapshots = append(u.snapshots, wf.Clone())
	u.cursor = len(u.snapshots) - 1
	return nil
}

// Undo steps back and returns a copy of the previous state
func (u *UndoStack) Undo() (*workflow.Workflow, error) {
	if !u.CanUndo() {
		return nil, errors.New("nothing to undo")
	}
	u.cursor--
	return u.snapshots[u.cursor].Clone(), nil
}

// Redo steps forward and returns a copy of the next state
func (u *UndoStack) Redo() (*workflow.Workflow, error) {
	if !u.CanRedo() {
		return nil, errors.New("nothing to redo")
	}
	u.cursor++
	return u.snapshots[u.cursor].Clone(), nil
}

// CanUndo returns true if undo is available
func (u *UndoStack) CanUndo() bool {
	return u.cursor > 0
}

// CanRedo returns true if redo is available
func (u *UndoStack) CanRedo() bool {
	return u.cursor < len(u.snapshots)-1
}

// Reset discards history and records wf as the baseline
func (u *UndoStack) Reset(wf *workflow.Workflow) {
	u.snapshots = u.snapshots[:0]
	u.cursor = -1
	if wf != nil {
		_ = u.Push(wf)
	}
}

// Size returns the current number of snapshots
func (u *UndoStack) Size() int {
	return len(u.snapshots)
}
