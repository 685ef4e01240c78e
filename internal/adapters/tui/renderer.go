package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/kiln/internal/core/domain"
)

// msgRunFinished tells the model that quitting no longer interrupts the run.
type msgRunFinished struct{}

// Renderer wraps the bubbletea program as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
}

// NewRenderer creates a TUI renderer for model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errCh:   make(chan error, 1),
	}
}

// Start launches the program in the background.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop marks the run as finished and quits the program.
func (r *Renderer) Stop() error {
	r.program.Send(msgRunFinished{})
	r.program.Quit()
	return nil
}

// Wait blocks until the program has terminated. Quitting before Stop
// returns domain.ErrInterrupted.
func (r *Renderer) Wait() error {
	if err := <-r.errCh; err != nil {
		return err
	}
	if r.model.Interrupted {
		return domain.ErrInterrupted
	}
	return nil
}

// OnPlanEmit forwards the plan to the model.
func (r *Renderer) OnPlanEmit(tasks []string, deps map[string][]string, targets []string) {
	r.program.Send(MsgInitTasks{Tasks: tasks, Dependencies: deps, Targets: targets})
}

// OnTaskStart forwards a task start.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(MsgTaskStart{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime})
}

// OnTaskLog forwards task output.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(MsgTaskLog{SpanID: spanID, Data: data})
}

// OnTaskComplete forwards a task completion.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.program.Send(MsgTaskComplete{SpanID: spanID, EndTime: endTime, Err: err, Cached: cached})
}
