// Package linear renders task progress as prefixed, line-buffered logs for CI.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

// prefixColors are cycled through by task name.
var prefixColors = []termenv.ANSIColor{
	termenv.ANSICyan,
	termenv.ANSIMagenta,
	termenv.ANSIBlue,
	termenv.ANSIYellow,
	termenv.ANSIBrightCyan,
	termenv.ANSIBrightMagenta,
	termenv.ANSIBrightBlue,
}

// Renderer implements ports.Renderer for non-interactive environments.
// Task output goes to stdout, lifecycle messages go to stderr.
type Renderer struct {
	stdout *termenv.Output
	stderr *termenv.Output

	mu    sync.Mutex
	tasks map[string]*taskState

	executed, cached, failed int
}

type taskState struct {
	name      string
	startTime time.Time
	partial   bytes.Buffer
}

// NewRenderer creates a Renderer. Nil writers default to os.Stdout and os.Stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: output.NewWithProfile(stdout, output.ColorProfileANSI),
		stderr: output.NewWithProfile(stderr, output.ColorProfileANSI),
		tasks:  make(map[string]*taskState),
	}
}

// Start is a no-op.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes partial lines and prints the run summary.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range r.tasks {
		r.flushLocked(task)
	}
	if r.executed+r.cached+r.failed > 0 {
		_, _ = fmt.Fprintf(r.stderr, "%d executed, %d cached, %d failed\n", r.executed, r.cached, r.failed)
	}
	return nil
}

// Wait is a no-op.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the size of the plan and its targets.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planning %d task(s) for %d target(s): %s\n",
		len(tasks), len(targets), strings.Join(targets, ", "))
}

// OnTaskStart prints a start line.
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{name: name, startTime: startTime}
	_, _ = fmt.Fprintf(r.stderr, "%s %s\n", r.prefix(r.stderr, name), r.stderr.String("Starting...").Faint())
}

// OnTaskLog prints complete lines with the task prefix and keeps the trailing partial line.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	task.partial.Write(data)
	for {
		idx := bytes.IndexByte(task.partial.Bytes(), '\n')
		if idx < 0 {
			return
		}
		line := task.partial.Next(idx + 1)
		r.printLineLocked(task.name, line)
	}
}

// OnTaskComplete flushes the task output and prints its outcome.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)
	r.flushLocked(task)

	prefix := r.prefix(r.stderr, task.name)
	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	switch {
	case err != nil:
		r.failed++
		icon := r.stderr.String(style.Cross).Foreground(r.stderr.Color(string(style.Red)))
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n", prefix, icon, duration, err)
	case cached:
		r.cached++
		icon := r.stderr.String(style.Cached).Foreground(r.stderr.Color(string(style.Ash)))
		_, _ = fmt.Fprintf(r.stderr, "%s %s Cached\n", prefix, icon)
	default:
		r.executed++
		icon := r.stderr.String(style.Check).Foreground(r.stderr.Color(string(style.Green)))
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n", prefix, icon, duration)
	}
}

// flushLocked prints the remaining partial line of task. Must be called with r.mu held.
func (r *Renderer) flushLocked(task *taskState) {
	if task.partial.Len() > 0 {
		r.printLineLocked(task.name, task.partial.Bytes())
		task.partial.Reset()
	}
}

// printLineLocked prints line with the task prefix. Must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "%s %s\n", r.prefix(r.stdout, name), line)
}

func (r *Renderer) prefix(out *termenv.Output, name string) termenv.Style {
	color := prefixColors[xxhash.Sum64String(name)%uint64(len(prefixColors))]
	return out.String("[" + name + "]").Foreground(color)
}
