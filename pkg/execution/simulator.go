package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/expr-lang/expr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// simulatedScore is the evaluation score every simulated eval node reports
const simulatedScore = 0.87

// MsgPausedAtBreakpoint is the message of the entry emitted before the run
// blocks on a breakpoint. Callers that cannot pause answer it with Resume.
const MsgPausedAtBreakpoint = "Paused at breakpoint"

// Simulator walks a workflow in dependency order and emits the log entries a
// run would produce. Nothing is called: each node reports canned output.
type Simulator struct {
	logger    *zap.Logger
	stepDelay time.Duration
	resume    chan struct{}
}

// SimulatorOption configures a Simulator
type SimulatorOption func(*Simulator)

// WithStepDelay sets the pause between nodes
func WithStepDelay(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.stepDelay = d }
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *zap.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = logger }
}

// NewSimulator creates a simulator
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		logger:    zap.NewNop(),
		stepDelay: 300 * time.Millisecond,
		resume:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resume continues a run paused at a breakpoint
func (s *Simulator) Resume() {
	select {
	case s.resume <- struct{}{}:
	default:
	}
}

// Run simulates wf, handing every entry to emit in order.
// Cancelling ctx stops the run after emitting a warning; the context error is returned.
func (s *Simulator) Run(ctx context.Context, wf *workflow.Workflow, emit func(LogEntry)) error {
	runID := uuid.New().String()
	send := func(e LogEntry) {
		e.RunID = runID
		emit(e)
	}

	order, err := workflow.TopologicalSort(wf)
	if err != nil {
		send(NewLogEntry(LevelError, fmt.Sprintf("Cannot run workflow: %v", err)))
		return err
	}

	s.logger.Debug("simulation started", zap.String("workflow", wf.ID.String()), zap.String("run", runID), zap.Int("nodes", len(order)))
	send(NewLogEntry(LevelInfo, fmt.Sprintf("Starting workflow %q (%d nodes)", wf.Name, len(order))))

	started := time.Now()
	lastOutput := ""
	for _, id := range order {
		node, _ := wf.FindNode(id)

		if node.Data.Breakpoint {
			send(NewLogEntry(LevelWarning, MsgPausedAtBreakpoint).ForNode(node))
			select {
			case <-s.resume:
			case <-ctx.Done():
				send(NewLogEntry(LevelWarning, "Execution stopped"))
				return ctx.Err()
			}
		}

		send(NewLogEntry(LevelInfo, fmt.Sprintf("Executing %s", node.Data.Label)).ForNode(node))

		if s.stepDelay > 0 {
			timer := time.NewTimer(s.stepDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				send(NewLogEntry(LevelWarning, "Execution stopped"))
				return ctx.Err()
			}
		} else if ctx.Err() != nil {
			send(NewLogEntry(LevelWarning, "Execution stopped"))
			return ctx.Err()
		}

		entry, output := s.simulateNode(node, lastOutput)
		if output != "" {
			lastOutput = output
		}
		send(entry.ForNode(node))
	}

	send(NewLogEntry(LevelSuccess, "Workflow completed").WithData(map[string]any{
		"duration_ms": time.Since(started).Milliseconds(),
	}))
	s.logger.Debug("simulation finished", zap.String("run", runID))
	return nil
}

// simulateNode produces the canned result entry for one node
func (s *Simulator) simulateNode(node *workflow.Node, lastOutput string) (LogEntry, string) {
	cfg := node.Data.Config

	switch node.Type {
	case workflow.NodeTypeTrigger:
		return NewLogEntry(LevelSuccess, "Trigger fired").WithData(map[string]any{"payload": "sample input"}), "sample input"

	case workflow.NodeTypeLLM:
		model, _ := cfg["model"].(string)
		if model == "" {
			model = "default model"
		}
		out := fmt.Sprintf("Simulated response from %s", model)
		return NewLogEntry(LevelSuccess, "Model responded").WithData(map[string]any{"output": out, "tokens": 42}), out

	case workflow.NodeTypeKnowledge:
		return NewLogEntry(LevelSuccess, "Retrieved documents").WithData(map[string]any{"documents": cfg["top_k"]}), ""

	case workflow.NodeTypeTool:
		return NewLogEntry(LevelSuccess, "Tool call finished").WithData(map[string]any{"rows": 1}), ""

	case workflow.NodeTypeMemory:
		return NewLogEntry(LevelSuccess, "Memory updated"), ""

	case workflow.NodeTypeGuardrail, workflow.NodeTypeEval:
		return s.checkCondition(node, lastOutput), ""

	case workflow.NodeTypeAction:
		return NewLogEntry(LevelSuccess, "Action delivered").WithData(map[string]any{"delivered": true}), ""

	default:
		return NewLogEntry(LevelWarning, fmt.Sprintf("Unknown node type %q skipped", node.Type)), ""
	}
}

// checkCondition evaluates a guardrail or eval node's condition config
func (s *Simulator) checkCondition(node *workflow.Node, lastOutput string) LogEntry {
	condition, _ := node.Data.Config["condition"].(string)
	if condition == "" {
		return NewLogEntry(LevelSuccess, "Check passed")
	}

	env := make(map[string]any, len(node.Data.Config)+2)
	for k, v := range node.Data.Config {
		env[k] = v
	}
	env["output"] = lastOutput
	env["score"] = simulatedScore

	passed, err := EvaluateCondition(condition, env)
	if err != nil {
		s.logger.Debug("condition failed to evaluate", zap.String("node", node.ID.String()), zap.Error(err))
		return NewLogEntry(LevelError, fmt.Sprintf("Invalid condition: %v", err))
	}
	if !passed {
		level := LevelWarning
		if node.Type == workflow.NodeTypeGuardrail {
			level = LevelError
		}
		return NewLogEntry(level, fmt.Sprintf("Check failed: %s", condition)).WithData(map[string]any{"score": simulatedScore})
	}
	return NewLogEntry(LevelSuccess, "Check passed").WithData(map[string]any{"score": simulatedScore})
}

// EvaluateCondition compiles and runs a boolean expression against env
func EvaluateCondition(condition string, env map[string]any) (bool, error) {
	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}
	passed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, not bool", out)
	}
	return passed, nil
}
