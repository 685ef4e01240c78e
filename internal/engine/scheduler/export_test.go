package scheduler

import (
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/tracker"
)

// NewTaskExecutorForTest builds the executor Run would use, without running the plan.
func NewTaskExecutorForTest(s *Scheduler, plan *planner.ExecutionPlan, opts Options) (*TaskExecutor, *tracker.Tracker) {
	tr := tracker.New(plan.PropagationGraph)
	return &TaskExecutor{
		s:       s,
		plan:    plan,
		tracker: tr,
		opts:    opts,
		emit:    newStepEmitter(opts.Steps),
		shadows: newShadowRegistry(),
	}, tr
}
