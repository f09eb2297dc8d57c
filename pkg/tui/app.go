package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/dshills/goterm"
	"go.uber.org/zap"
)

// frameInterval is the redraw period while idle
const frameInterval = 16 * time.Millisecond

// App is the terminal front end of an Editor
type App struct {
	screen    *goterm.Screen
	editor    *Editor
	logger    *zap.Logger
	inputChan chan InputEvent
	reloads   chan workflow.WorkflowID
}

// NewApp takes over the terminal for editor
func NewApp(editor *Editor, logger *zap.Logger) (*App, error) {
	screen, err := goterm.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if _, err := io.WriteString(os.Stdout, mouseEnable); err != nil {
		screen.Close()
		return nil, fmt.Errorf("failed to enable mouse reporting: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		screen:    screen,
		editor:    editor,
		logger:    logger,
		inputChan: make(chan InputEvent, 100),
		reloads:   make(chan workflow.WorkflowID, 8),
	}, nil
}

// Run drives the editor until the user quits or ctx is done
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go a.readInput(ctx)
	go a.watch(ctx)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	if err := a.render(); err != nil {
		return fmt.Errorf("initial render failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-sigChan:
			return nil

		case ev := <-a.inputChan:
			if ev.Key != nil {
				a.editor.HandleKey(ctx, *ev.Key)
			}
			if ev.Mouse != nil {
				a.editor.HandleMouse(*ev.Mouse)
			}
			if a.editor.Quit() {
				return nil
			}
			if err := a.render(); err != nil {
				return err
			}

		case entry, ok := <-a.editor.Logs():
			if ok {
				a.editor.AppendLog(entry)
			}

		case err := <-a.editor.RunDone():
			a.drainLogs()
			a.editor.FinishRun(err)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("run failed", zap.Error(err))
			}

		case id := <-a.reloads:
			if err := a.editor.Reload(ctx, id); err != nil {
				a.logger.Warn("reload failed", zap.String("workflow_id", string(id)), zap.Error(err))
			}

		case <-ticker.C:
			if err := a.render(); err != nil {
				return err
			}
		}
	}
}

// drainLogs moves entries still buffered when the run finishes
func (a *App) drainLogs() {
	for {
		select {
		case entry, ok := <-a.editor.Logs():
			if !ok {
				return
			}
			a.editor.AppendLog(entry)
		default:
			return
		}
	}
}

// watch forwards change notifications from other processes
func (a *App) watch(ctx context.Context) {
	if a.editor.svc == nil {
		return
	}
	err := a.editor.svc.Watch(ctx, func(id workflow.WorkflowID) {
		select {
		case a.reloads <- id:
		case <-ctx.Done():
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("watch stopped", zap.Error(err))
	}
}

func (a *App) render() error {
	a.screen.Clear()
	a.editor.Render(a.screen)
	if err := a.screen.Show(); err != nil {
		return fmt.Errorf("screen show failed: %w", err)
	}
	return nil
}

// readInput reads the raw terminal in a background goroutine
func (a *App) readInput(ctx context.Context) {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := os.Stdin.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}

		for _, ev := range ParseInput(buf[:n]) {
			select {
			case a.inputChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops any run and restores the terminal
func (a *App) Close() error {
	a.editor.Close()
	_, _ = io.WriteString(os.Stdout, mouseDisable)
	if err := a.screen.Close(); err != nil {
		return fmt.Errorf("failed to close screen: %w", err)
	}
	return nil
}
