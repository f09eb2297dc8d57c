package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu      sync.Mutex
	entries []LogEntry
	seen    chan LogEntry
}

func newCollector() *collector {
	return &collector{seen: make(chan LogEntry, 64)}
}

func (c *collector) emit(e LogEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
	select {
	case c.seen <- e:
	default:
	}
}

func (c *collector) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Message
	}
	return out
}

func (c *collector) waitFor(t *testing.T, message string) LogEntry {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-c.seen:
			if e.Message == message {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", message)
		}
	}
}

func chain(t *testing.T, nodes ...*workflow.Node) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.NewWorkflow("Sim", "")
	require.NoError(t, err)
	for i, n := range nodes {
		require.NoError(t, wf.AddNode(n))
		if i > 0 {
			_, err := wf.Connect(nodes[i-1].ID, n.ID)
			require.NoError(t, err)
		}
	}
	return wf
}

func node(nodeType workflow.NodeType, label string, config map[string]any) *workflow.Node {
	return workflow.NewNode(nodeType, workflow.Position{}, workflow.NodeData{Label: label, Config: config})
}

func TestSimulatorRunsInDependencyOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	trigger := node(workflow.NodeTypeTrigger, "Webhook", nil)
	llm := node(workflow.NodeTypeLLM, "Chat", map[string]any{"model": "gpt-4o-mini"})
	action := node(workflow.NodeTypeAction, "Email", nil)

	// Add out of order; connections decide the run order
	wf, err := workflow.NewWorkflow("Sim", "")
	require.NoError(t, err)
	require.NoError(t, wf.AddNode(action))
	require.NoError(t, wf.AddNode(llm))
	require.NoError(t, wf.AddNode(trigger))
	_, err = wf.Connect(trigger.ID, llm.ID)
	require.NoError(t, err)
	_, err = wf.Connect(llm.ID, action.ID)
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, NewSimulator(WithStepDelay(0)).Run(context.Background(), wf, c.emit))

	assert.Equal(t, []string{
		`Starting workflow "Sim" (3 nodes)`,
		"Executing Webhook",
		"Trigger fired",
		"Executing Chat",
		"Model responded",
		"Executing Email",
		"Action delivered",
		"Workflow completed",
	}, c.messages())

	runID := c.entries[0].RunID
	assert.NotEmpty(t, runID)
	for _, e := range c.entries {
		assert.Equal(t, runID, e.RunID)
	}
	assert.Equal(t, llm.ID, c.entries[4].NodeID)
	assert.Equal(t, "Simulated response from gpt-4o-mini", c.entries[4].Data["output"])
}

func TestSimulatorConditions(t *testing.T) {
	tests := []struct {
		name      string
		node      *workflow.Node
		wantLevel Level
		wantMsg   string
	}{
		{
			name:      "guardrail passes on model output",
			node:      node(workflow.NodeTypeGuardrail, "Filter", map[string]any{"condition": "len(output) > 0"}),
			wantLevel: LevelSuccess,
			wantMsg:   "Check passed",
		},
		{
			name:      "eval below threshold warns",
			node:      node(workflow.NodeTypeEval, "Eval", map[string]any{"threshold": 0.95, "condition": "score >= threshold"}),
			wantLevel: LevelWarning,
			wantMsg:   "Check failed: score >= threshold",
		},
		{
			name:      "guardrail failure is an error",
			node:      node(workflow.NodeTypeGuardrail, "Filter", map[string]any{"condition": `output == "nothing"`}),
			wantLevel: LevelError,
			wantMsg:   `Check failed: output == "nothing"`,
		},
		{
			name:      "no condition passes",
			node:      node(workflow.NodeTypeEval, "Eval", nil),
			wantLevel: LevelSuccess,
			wantMsg:   "Check passed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := chain(t, node(workflow.NodeTypeLLM, "Chat", nil), tt.node)

			c := newCollector()
			require.NoError(t, NewSimulator(WithStepDelay(0)).Run(context.Background(), wf, c.emit))

			var found bool
			for _, e := range c.entries {
				if e.NodeID == tt.node.ID && e.Message != "Executing "+tt.node.Data.Label {
					found = true
					assert.Equal(t, tt.wantLevel, e.Level)
					assert.Equal(t, tt.wantMsg, e.Message)
				}
			}
			assert.True(t, found)
		})
	}
}

func TestSimulatorInvalidCondition(t *testing.T) {
	wf := chain(t, node(workflow.NodeTypeGuardrail, "Filter", map[string]any{"condition": "output >"}))

	c := newCollector()
	require.NoError(t, NewSimulator(WithStepDelay(0)).Run(context.Background(), wf, c.emit))

	last := c.entries[len(c.entries)-2]
	assert.Equal(t, LevelError, last.Level)
	assert.Contains(t, last.Message, "Invalid condition")
}

func TestSimulatorCycle(t *testing.T) {
	a := node(workflow.NodeTypeLLM, "A", nil)
	b := node(workflow.NodeTypeLLM, "B", nil)
	wf := chain(t, a, b)
	_, err := wf.Connect(b.ID, a.ID)
	require.NoError(t, err)

	c := newCollector()
	err = NewSimulator(WithStepDelay(0)).Run(context.Background(), wf, c.emit)
	require.Error(t, err)
	require.Len(t, c.entries, 1)
	assert.Equal(t, LevelError, c.entries[0].Level)
	assert.Contains(t, c.entries[0].Message, "cycle")
}

func TestSimulatorStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	wf := chain(t,
		node(workflow.NodeTypeTrigger, "Start", nil),
		node(workflow.NodeTypeLLM, "Chat", nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	c := newCollector()
	done := make(chan error, 1)
	go func() {
		done <- NewSimulator(WithStepDelay(time.Hour)).Run(ctx, wf, c.emit)
	}()

	c.waitFor(t, "Executing Start")
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}

	msgs := c.messages()
	assert.Equal(t, "Execution stopped", msgs[len(msgs)-1])
	assert.NotContains(t, msgs, "Workflow completed")
}

func TestSimulatorBreakpoint(t *testing.T) {
	defer goleak.VerifyNone(t)

	paused := node(workflow.NodeTypeLLM, "Chat", nil)
	paused.Data.Breakpoint = true
	wf := chain(t, node(workflow.NodeTypeTrigger, "Start", nil), paused)

	sim := NewSimulator(WithStepDelay(0))
	c := newCollector()
	done := make(chan error, 1)
	go func() {
		done <- sim.Run(context.Background(), wf, c.emit)
	}()

	e := c.waitFor(t, "Paused at breakpoint")
	assert.Equal(t, paused.ID, e.NodeID)
	assert.Equal(t, LevelWarning, e.Level)

	sim.Resume()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not resume")
	}
	msgs := c.messages()
	assert.Equal(t, "Workflow completed", msgs[len(msgs)-1])
}

func TestEvaluateCondition(t *testing.T) {
	ok, err := EvaluateCondition("score >= threshold", map[string]any{"score": 0.9, "threshold": 0.8})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = EvaluateCondition("score + 1", map[string]any{"score": 0.9})
	assert.Error(t, err)
}
