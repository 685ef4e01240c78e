// Package tracker holds the runtime state of tasks during a build run.
package tracker

import (
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
)

// Task is the mutable runtime object wrapping a TaskInfo for one build run.
type Task struct {
	Info *domain.TaskInfo

	mu          sync.Mutex
	record      domain.ExecutionRecord
	fingerprint domain.Fingerprint
	done        chan struct{}
}

// NewTask wraps info in a fresh, unstarted task.
func NewTask(info *domain.TaskInfo) *Task {
	return &Task{
		Info: info,
		done: make(chan struct{}),
	}
}

// Name returns the task name.
func (t *Task) Name() domain.TaskName {
	return t.Info.Name
}

// GrabExecutionRights reports whether the caller is the first to start the task.
// The winner has RUNNING appended to the phase list and must drive the task to TERMINAL.
func (t *Task) GrabExecutionRights() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.record.Phases) > 0 {
		return false
	}
	t.record.Phases = append(t.record.Phases, domain.PhaseRunning)
	return true
}

// Done is closed once the task reaches TERMINAL.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// EnterPhase appends a phase. Entering TERMINAL releases every waiter.
func (t *Task) EnterPhase(p domain.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slices.Contains(t.record.Phases, domain.PhaseTerminal) {
		return
	}
	t.record.Phases = append(t.record.Phases, p)
	if p == domain.PhaseTerminal {
		close(t.done)
	}
}

// Phases returns a copy of the visited phases.
func (t *Task) Phases() []domain.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.record.Phases)
}

// HasPhase reports whether p was visited.
func (t *Task) HasPhase(p domain.Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Contains(t.record.Phases, p)
}

// Fingerprint returns the fingerprint, if computed.
func (t *Task) Fingerprint() (domain.Fingerprint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fingerprint, t.fingerprint != ""
}

// SetFingerprint stores the fingerprint computed for this run.
func (t *Task) SetFingerprint(fp domain.Fingerprint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fingerprint = fp
}

// Record returns a snapshot of the execution record.
func (t *Task) Record() domain.ExecutionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record
	r.Phases = slices.Clone(r.Phases)
	return r
}

// Verdict returns the current verdict.
func (t *Task) Verdict() domain.Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.Verdict
}

// setVerdict records a verdict unless one is already set. It reports whether it was applied.
func (t *Task) setVerdict(v domain.Verdict, typ domain.ExecutionType, rootCause *domain.TaskName, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.record.Verdict != domain.VerdictUnknown {
		return false
	}
	t.record.Verdict = v
	t.record.Type = typ
	t.record.RootCause = rootCause
	t.record.Err = err
	return true
}

func (t *Task) stampStart(slot int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.StartSlot = slot
}

func (t *Task) stampEnd(slot int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.EndSlot = slot
}
