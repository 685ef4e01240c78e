package dag

import (
	"context"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Status is the final state of a vertex after execution.
type Status int

const (
	// StatusSucceeded means the work function returned nil.
	StatusSucceeded Status = iota
	// StatusFailed means the work function returned an error.
	StatusFailed
	// StatusSkipped means the vertex never started because of an earlier failure or cancellation.
	StatusSkipped
)

// Completion reports the outcome of one vertex.
type Completion struct {
	ID     string
	Status Status
	Err    error
}

// ProgressListener is notified once per vertex.
type ProgressListener func(Completion)

// BatchScheduler may replace a batch of ready vertices with a sub-graph over exactly those
// vertices. Edges of the sub-graph are honoured as extra ordering constraints.
// Returning nil keeps the batch unconstrained.
type BatchScheduler[V any] func(batch []string, g *Graph[V]) (*Graph[V], error)

// WorkFunc executes a single vertex.
type WorkFunc[V any] func(ctx context.Context, id string, v V) error

// GraphExecutor runs the vertices of a graph in dependency order.
type GraphExecutor[V any] struct {
	graph     *Graph[V]
	listeners []ProgressListener
	batch     BatchScheduler[V]
}

// Option configures a GraphExecutor.
type Option[V any] func(*GraphExecutor[V])

// WithListener registers a progress listener.
func WithListener[V any](l ProgressListener) Option[V] {
	return func(e *GraphExecutor[V]) {
		e.listeners = append(e.listeners, l)
	}
}

// WithBatchScheduler installs a batch rescheduling hook.
func WithBatchScheduler[V any](b BatchScheduler[V]) Option[V] {
	return func(e *GraphExecutor[V]) {
		e.batch = b
	}
}

// NewGraphExecutor creates an executor for g.
func NewGraphExecutor[V any](g *Graph[V], opts ...Option[V]) *GraphExecutor[V] {
	e := &GraphExecutor[V]{graph: g}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type result struct {
	id  string
	err error
}

type runState[V any] struct {
	e           *GraphExecutor[V]
	ctx         context.Context
	work        WorkFunc[V]
	pool        *Executor
	concurrency int

	inDegree  map[string]int
	ready     []string
	active    int
	resultsCh chan result
	started   map[string]bool
	firstErr  error

	// sub-batch ordering constraints
	held    map[string]int
	release map[string][]string
}

// Execute runs work for every vertex with at most concurrency vertices in flight.
//
// Execution is fail-fast: the first error is returned, no further vertex is started once it
// occurred, and vertices already running are allowed to finish. A cyclic graph fails with
// ErrCycleDetected before any work runs.
func (e *GraphExecutor[V]) Execute(ctx context.Context, concurrency int, work WorkFunc[V]) error {
	if err := e.graph.Validate(); err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	state := &runState[V]{
		e:           e,
		ctx:         ctx,
		work:        work,
		pool:        NewExecutor(concurrency),
		concurrency: concurrency,
		inDegree:    make(map[string]int, e.graph.Len()),
		resultsCh:   make(chan result, e.graph.Len()),
		started:     make(map[string]bool, e.graph.Len()),
		held:        make(map[string]int),
		release:     make(map[string][]string),
	}

	var initial []string
	for _, id := range e.graph.IDs() {
		state.inDegree[id] = len(e.graph.Neighbors(id))
		if state.inDegree[id] == 0 {
			initial = append(initial, id)
		}
	}
	if err := state.enqueue(initial); err != nil {
		state.firstErr = err
	}

	err := state.loop()
	state.pool.Wait()
	state.reportUnstarted()
	return err
}

func (s *runState[V]) loop() error {
	for {
		s.schedule()
		if s.active == 0 && (len(s.ready) == 0 || s.stopped()) {
			break
		}
		res := <-s.resultsCh
		s.active--
		if err := s.complete(res); err != nil && s.firstErr == nil {
			s.firstErr = err
		}
	}

	if s.firstErr != nil {
		return s.firstErr
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *runState[V]) stopped() bool {
	return s.firstErr != nil || s.ctx.Err() != nil
}

func (s *runState[V]) schedule() {
	for len(s.ready) > 0 && s.active < s.concurrency && !s.stopped() {
		id := s.ready[0]
		s.ready = s.ready[1:]
		s.active++
		s.started[id] = true

		v, _ := s.e.graph.Vertex(id)
		s.pool.Submit(s.ctx, func(ctx context.Context) {
			s.resultsCh <- result{id: id, err: s.work(ctx, id, v)}
		})
	}
}

func (s *runState[V]) complete(res result) error {
	status := StatusSucceeded
	if res.err != nil {
		status = StatusFailed
	}
	s.notify(Completion{ID: res.id, Status: status, Err: res.err})
	if res.err != nil {
		return res.err
	}

	for _, waiting := range s.release[res.id] {
		s.held[waiting]--
		if s.held[waiting] == 0 {
			delete(s.held, waiting)
			s.ready = append(s.ready, waiting)
		}
	}
	delete(s.release, res.id)

	var newlyReady []string
	for _, dependent := range s.e.graph.BackNeighbors(res.id) {
		s.inDegree[dependent]--
		if s.inDegree[dependent] == 0 {
			newlyReady = append(newlyReady, dependent)
		}
	}
	return s.enqueue(newlyReady)
}

// enqueue adds a freshly ready batch, passing it through the batch scheduler first.
func (s *runState[V]) enqueue(batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	if s.e.batch == nil || len(batch) == 1 {
		s.ready = append(s.ready, batch...)
		return nil
	}

	sub, err := s.e.batch(slices.Clone(batch), s.e.graph)
	if err != nil {
		return err
	}
	if sub == nil {
		s.ready = append(s.ready, batch...)
		return nil
	}
	if err := validateBatch(batch, sub); err != nil {
		return err
	}

	for _, id := range sub.IDs() {
		deps := sub.Neighbors(id)
		if len(deps) == 0 {
			s.ready = append(s.ready, id)
			continue
		}
		s.held[id] = len(deps)
		for _, dep := range deps {
			s.release[dep] = append(s.release[dep], id)
		}
	}
	return nil
}

func validateBatch[V any](batch []string, sub *Graph[V]) error {
	want := slices.Sorted(slices.Values(batch))
	if !slices.Equal(want, sub.IDs()) {
		return zerr.With(
			zerr.Wrap(domain.ErrInvalidBatch, "sub-graph vertices differ from the ready batch"),
			"batch", want,
		)
	}
	if cycle := sub.FindCycle(); cycle != nil {
		return zerr.With(zerr.Wrap(domain.ErrInvalidBatch, "sub-graph is cyclic"), "cycle", cycle)
	}
	return nil
}

func (s *runState[V]) notify(c Completion) {
	for _, l := range s.e.listeners {
		l(c)
	}
}

func (s *runState[V]) reportUnstarted() {
	for _, id := range s.e.graph.IDs() {
		if !s.started[id] {
			s.notify(Completion{ID: id, Status: StatusSkipped})
		}
	}
}
