package dag_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/dag"
	"pgregory.net/rapid"
)

type recorder struct {
	mu          sync.Mutex
	order       []string
	completions map[string][]dag.Status
}

func newRecorder() *recorder {
	return &recorder{completions: make(map[string][]dag.Status)}
}

func (r *recorder) listener(c dag.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[c.ID] = append(r.completions[c.ID], c.Status)
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

func TestGraphExecutor_RunsInDependencyOrder(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"app":  {"lib"},
		"lib":  {"util"},
		"util": nil,
	})
	rec := newRecorder()

	exec := dag.NewGraphExecutor(g, dag.WithListener[string](rec.listener))
	err := exec.Execute(context.Background(), 4, func(_ context.Context, id string, _ string) error {
		rec.record(id)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"util", "lib", "app"}, rec.order)
	for _, id := range g.IDs() {
		assert.Equal(t, []dag.Status{dag.StatusSucceeded}, rec.completions[id], id)
	}
}

func TestGraphExecutor_FailFast(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": nil,
	})
	rec := newRecorder()
	boom := errors.New("boom")

	exec := dag.NewGraphExecutor(g, dag.WithListener[string](rec.listener))
	err := exec.Execute(context.Background(), 1, func(_ context.Context, id string, _ string) error {
		rec.record(id)
		if id == "a" {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, rec.order)
	assert.Equal(t, []dag.Status{dag.StatusFailed}, rec.completions["a"])
	assert.Equal(t, []dag.Status{dag.StatusSkipped}, rec.completions["b"])
	assert.Equal(t, []dag.Status{dag.StatusSkipped}, rec.completions["c"])
}

func TestGraphExecutor_FirstErrorWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := buildGraph(t, map[string][]string{"fast": nil, "slow": nil})
		fastErr := errors.New("fast")
		slowErr := errors.New("slow")

		exec := dag.NewGraphExecutor(g)
		err := exec.Execute(context.Background(), 2, func(_ context.Context, id string, _ string) error {
			if id == "slow" {
				time.Sleep(time.Second)
				return slowErr
			}
			return fastErr
		})

		require.ErrorIs(t, err, fastErr)
		require.NotErrorIs(t, err, slowErr)
	})
}

func TestGraphExecutor_BoundsConcurrency(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		edges := make(map[string][]string)
		for i := range 6 {
			edges[fmt.Sprintf("v%d", i)] = nil
		}
		g := buildGraph(t, edges)

		var running, peak atomic.Int32
		exec := dag.NewGraphExecutor(g)
		err := exec.Execute(context.Background(), 2, func(_ context.Context, _ string, _ string) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Second)
			running.Add(-1)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, int32(2), peak.Load())
	})
}

func TestGraphExecutor_RejectsCycle(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	called := false

	err := dag.NewGraphExecutor(g).Execute(context.Background(), 2, func(context.Context, string, string) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, domain.ErrCycleDetected)
	assert.False(t, called)
}

func TestGraphExecutor_BatchSchedulerChainsBatch(t *testing.T) {
	g := buildGraph(t, map[string][]string{"x": nil, "y": nil, "z": nil})
	rec := newRecorder()

	chain := func(batch []string, _ *dag.Graph[string]) (*dag.Graph[string], error) {
		sub := dag.New[string]()
		for _, id := range batch {
			if err := sub.AddVertex(id, id); err != nil {
				return nil, err
			}
		}
		if err := sub.AddEdge("y", "x"); err != nil {
			return nil, err
		}
		if err := sub.AddEdge("z", "y"); err != nil {
			return nil, err
		}
		return sub, nil
	}

	exec := dag.NewGraphExecutor(g, dag.WithBatchScheduler[string](chain))
	err := exec.Execute(context.Background(), 3, func(_ context.Context, id string, _ string) error {
		rec.record(id)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, rec.order)
}

func TestGraphExecutor_BatchSchedulerValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(batch []string) *dag.Graph[string]
	}{
		{
			name: "Missing Vertex",
			build: func(batch []string) *dag.Graph[string] {
				sub := dag.New[string]()
				_ = sub.AddVertex(batch[0], batch[0])
				return sub
			},
		},
		{
			name: "Foreign Vertex",
			build: func(batch []string) *dag.Graph[string] {
				sub := dag.New[string]()
				for _, id := range batch {
					_ = sub.AddVertex(id, id)
				}
				_ = sub.AddVertex("outsider", "outsider")
				return sub
			},
		},
		{
			name: "Cyclic",
			build: func(batch []string) *dag.Graph[string] {
				sub := dag.New[string]()
				for _, id := range batch {
					_ = sub.AddVertex(id, id)
				}
				_ = sub.AddEdge("p", "q")
				_ = sub.AddEdge("q", "p")
				return sub
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, map[string][]string{"p": nil, "q": nil})
			scheduler := func(batch []string, _ *dag.Graph[string]) (*dag.Graph[string], error) {
				return tt.build(batch), nil
			}

			rec := newRecorder()
			err := dag.NewGraphExecutor(g, dag.WithBatchScheduler[string](scheduler), dag.WithListener[string](rec.listener)).
				Execute(context.Background(), 2, func(_ context.Context, id string, _ string) error {
					rec.record(id)
					return nil
				})

			require.ErrorIs(t, err, domain.ErrInvalidBatch)
			// The rejected batch is the first one: nothing runs, every vertex is still reported.
			assert.Empty(t, rec.order)
			assert.Equal(t, map[string][]dag.Status{
				"p": {dag.StatusSkipped},
				"q": {dag.StatusSkipped},
			}, rec.completions)
		})
	}
}

func TestGraphExecutor_CancelledContextStartsNothing(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil, "b": {"a"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRecorder()

	err := dag.NewGraphExecutor(g, dag.WithListener[string](rec.listener)).
		Execute(ctx, 2, func(_ context.Context, id string, _ string) error {
			rec.record(id)
			return nil
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.order)
	assert.Equal(t, []dag.Status{dag.StatusSkipped}, rec.completions["a"])
}

func TestGraphExecutor_PropertyDependenciesFinishFirst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "vertices")
		concurrency := rapid.IntRange(1, 4).Draw(rt, "concurrency")

		g := dag.New[int]()
		for i := range n {
			require.NoError(rt, g.AddVertex(fmt.Sprintf("v%02d", i), i))
		}
		for i := range n {
			for j := range i {
				if rapid.Bool().Draw(rt, fmt.Sprintf("edge-%d-%d", i, j)) {
					require.NoError(rt, g.AddEdge(fmt.Sprintf("v%02d", i), fmt.Sprintf("v%02d", j)))
				}
			}
		}

		var mu sync.Mutex
		finished := make(map[string]bool)
		var violations []string

		err := dag.NewGraphExecutor(g).Execute(context.Background(), concurrency,
			func(_ context.Context, id string, _ int) error {
				mu.Lock()
				for _, dep := range g.Neighbors(id) {
					if !finished[dep] {
						violations = append(violations, id+" started before "+dep)
					}
				}
				mu.Unlock()

				mu.Lock()
				finished[id] = true
				mu.Unlock()
				return nil
			})

		require.NoError(rt, err)
		require.Empty(rt, violations)
		require.Len(rt, finished, n)
	})
}
