package tracker

import (
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/dag"
)

// Stats summarizes a build run.
type Stats struct {
	MaxUsedConcurrency int
	NumExecuted        int
}

// Tracker owns the logical clock and verdict bookkeeping of a run.
type Tracker struct {
	propagation *dag.Graph[*Task]

	mu          sync.Mutex
	clock       int64
	running     int
	maxRunning  int
	numExecuted int
}

// New creates a tracker that propagates failures over the given graph.
// The graph is only read.
func New(propagation *dag.Graph[*Task]) *Tracker {
	return &Tracker{propagation: propagation}
}

// Begin grabs execution rights for t and stamps its start slot.
// It returns false when another caller already drives t.
func (tr *Tracker) Begin(t *Task) bool {
	if !t.GrabExecutionRights() {
		return false
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.clock++
	t.stampStart(tr.clock)
	tr.running++
	tr.maxRunning = max(tr.maxRunning, tr.running)
	return true
}

// Finish stamps the end slot of t and moves it to TERMINAL.
func (tr *Tracker) Finish(t *Task) {
	tr.mu.Lock()
	tr.clock++
	t.stampEnd(tr.clock)
	tr.running--
	tr.mu.Unlock()
	t.EnterPhase(domain.PhaseTerminal)
}

// RecordVerdict registers the verdict of t. A failure marks every transitive dependent of t
// as unable to start, with t as root cause.
func (tr *Tracker) RecordVerdict(t *Task, v domain.Verdict, typ domain.ExecutionType, err error) {
	if !t.setVerdict(v, typ, nil, err) {
		return
	}
	if typ == domain.ExecutionExecuted {
		tr.mu.Lock()
		tr.numExecuted++
		tr.mu.Unlock()
	}
	if v == domain.VerdictFail {
		tr.propagate(t)
	}
}

func (tr *Tracker) propagate(origin *Task) {
	root := origin.Name()
	id := root.String()
	if !tr.propagation.Has(id) {
		return
	}
	for dependentID := range tr.propagation.ReachableFrom([]string{id}, true) {
		if dependentID == id {
			continue
		}
		dependent, _ := tr.propagation.Vertex(dependentID)
		dependent.setVerdict(domain.VerdictFail, domain.ExecutionCannotStart, &root, nil)
	}
}

// Stats returns the concurrency and execution counters.
func (tr *Tracker) Stats() Stats {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return Stats{MaxUsedConcurrency: tr.maxRunning, NumExecuted: tr.numExecuted}
}
