// Package scheduler drives a planned build run through the task state machine.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/dag"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// Options carries the collaborators and settings of a single run.
type Options struct {
	// Root is the absolute workspace root.
	Root string
	// BuildRunID identifies the run. A random id is generated when empty.
	BuildRunID  string
	Concurrency int
	// TestCaching allows test tasks to be restored from the task store.
	TestCaching bool
	// TightFingerprints restricts dependency fingerprints to declared dependencies.
	TightFingerprints bool
	// Ignore holds base-name patterns skipped while hashing inputs.
	Ignore []string

	Repo  ports.RepoProtocol
	Store ports.TaskStore
	// Publisher uploads assets. Assets are not published when nil.
	Publisher ports.AssetPublisher
	// Ledger records fingerprints. Nothing is recorded when nil.
	Ledger ports.Ledger
	// Steps receives the step records of the run.
	Steps domain.StepProcessor
}

// Summary describes a finished run.
type Summary struct {
	BuildRunID string
	Verdict    domain.Verdict
	Stats      tracker.Stats
	Records    map[domain.TaskName]domain.ExecutionRecord
	// Failed lists the tasks with a FAIL verdict, sorted by name.
	Failed []domain.TaskName
}

// Scheduler executes execution plans.
type Scheduler struct {
	fingerprinter ports.Fingerprinter
	verifier      ports.Verifier
	tracer        ports.Tracer
	logger        ports.Logger
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	fingerprinter ports.Fingerprinter,
	verifier ports.Verifier,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		fingerprinter: fingerprinter,
		verifier:      verifier,
		tracer:        tracer,
		logger:        logger,
	}
}

// Run executes every task of plan.
//
// Task failures are recorded and propagated to dependents while unrelated tasks continue; the
// run then ends with ErrBuildFailed. Any other error aborts the run and is returned as is.
func (s *Scheduler) Run(ctx context.Context, plan *planner.ExecutionPlan, opts Options) (*Summary, error) {
	if opts.BuildRunID == "" {
		opts.BuildRunID = uuid.NewString()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.NumCPU()
	}

	emit := newStepEmitter(opts.Steps)
	emit(domain.BuildRunStarted{BuildRunID: opts.BuildRunID})

	order, err := plan.Order()
	if err != nil {
		return nil, err
	}
	emit(domain.PlanPrepared{Tasks: order})
	s.emitPlan(ctx, plan, order)

	tr := tracker.New(plan.PropagationGraph)
	te := &TaskExecutor{
		s:       s,
		plan:    plan,
		tracker: tr,
		opts:    opts,
		emit:    emit,
		shadows: newShadowRegistry(),
	}

	exec := dag.NewGraphExecutor(plan.Graph, dag.WithBatchScheduler[*tracker.Task](ChainShadowing))
	runErr := exec.Execute(ctx, opts.Concurrency, func(ctx context.Context, _ string, t *tracker.Task) error {
		return te.Drive(ctx, t)
	})

	summary := summarize(opts.BuildRunID, plan, tr)
	if runErr != nil {
		summary.Verdict = domain.VerdictCrash
	}
	emit(domain.BuildRunEnded{Verdict: summary.Verdict})

	if runErr != nil {
		return summary, runErr
	}
	if len(summary.Failed) > 0 {
		return summary, buildFailure(summary)
	}
	return summary, nil
}

func (s *Scheduler) emitPlan(ctx context.Context, plan *planner.ExecutionPlan, order []domain.TaskName) {
	names := make([]string, len(order))
	deps := make(map[string][]string, len(order))
	for i, name := range order {
		names[i] = name.String()
		for _, dep := range plan.Dependencies(name) {
			deps[names[i]] = append(deps[names[i]], dep.String())
		}
	}
	targets := make([]string, len(plan.Targets))
	for i, t := range plan.Targets {
		targets[i] = t.String()
	}
	s.tracer.EmitPlan(ctx, names, deps, targets)
}

func summarize(id string, plan *planner.ExecutionPlan, tr *tracker.Tracker) *Summary {
	summary := &Summary{
		BuildRunID: id,
		Verdict:    domain.VerdictOK,
		Stats:      tr.Stats(),
		Records:    make(map[domain.TaskName]domain.ExecutionRecord, plan.Graph.Len()),
	}
	for _, vid := range plan.Graph.IDs() {
		t, _ := plan.Graph.Vertex(vid)
		rec := t.Record()
		summary.Records[t.Name()] = rec
		switch rec.Verdict {
		case domain.VerdictFail:
			summary.Failed = append(summary.Failed, t.Name())
			summary.Verdict = max(summary.Verdict, domain.VerdictFail)
		case domain.VerdictCrash:
			summary.Verdict = domain.VerdictCrash
		}
	}
	return summary
}

func buildFailure(summary *Summary) error {
	parts := make([]string, 0, len(summary.Failed))
	var origins []string
	for _, name := range summary.Failed {
		rec := summary.Records[name]
		if rec.RootCause != nil {
			parts = append(parts, fmt.Sprintf("%s (because %s failed)", name, rec.RootCause))
			continue
		}
		parts = append(parts, name.String())
		origins = append(origins, name.String())
	}
	msg := fmt.Sprintf("%d of %d tasks failed: %s", len(summary.Failed), len(summary.Records), strings.Join(parts, ", "))
	return zerr.With(zerr.Wrap(domain.ErrBuildFailed, msg), "failed", origins)
}

// newStepEmitter serializes step records coming from concurrent tasks.
func newStepEmitter(steps domain.StepProcessor) domain.StepProcessor {
	if steps == nil {
		return func(domain.Step) {}
	}
	var mu sync.Mutex
	return func(step domain.Step) {
		mu.Lock()
		defer mu.Unlock()
		steps(step)
	}
}

// ChainShadowing serializes same-kind shadowing tasks without outputs inside a ready batch,
// so that later tasks can reuse the verdict of an equivalent earlier one.
func ChainShadowing(batch []string, g *dag.Graph[*tracker.Task]) (*dag.Graph[*tracker.Task], error) {
	ids := slices.Sorted(slices.Values(batch))
	last := make(map[domain.TaskKind]string)
	sub := dag.New[*tracker.Task]()
	chained := false

	for _, id := range ids {
		t, _ := g.Vertex(id)
		if err := sub.AddVertex(id, t); err != nil {
			return nil, err
		}
		if !t.Info.Shadowing || len(t.Info.Outputs) > 0 {
			continue
		}
		kind := t.Name().Kind
		if prev, ok := last[kind]; ok {
			if err := sub.AddEdge(id, prev); err != nil {
				return nil, err
			}
			chained = true
		}
		last[kind] = id
	}

	if !chained {
		return nil, nil
	}
	return sub, nil
}
