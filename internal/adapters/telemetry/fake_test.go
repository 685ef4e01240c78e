package telemetry_test

import (
	"context"
	"sync"
	"time"
)

type completion struct {
	spanID string
	err    error
	cached bool
}

// fakeRenderer records every event it receives, in order.
type fakeRenderer struct {
	mu        sync.Mutex
	events    []string
	plans     [][]string
	starts    map[string]string
	logs      map[string][]byte
	completes []completion
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{starts: map[string]string{}, logs: map[string][]byte{}}
}

func (f *fakeRenderer) Start(_ context.Context) error { return nil }
func (f *fakeRenderer) Stop() error                   { return nil }
func (f *fakeRenderer) Wait() error                   { return nil }

func (f *fakeRenderer) OnPlanEmit(tasks []string, _ map[string][]string, _ []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "plan")
	f.plans = append(f.plans, tasks)
}

func (f *fakeRenderer) OnTaskStart(spanID, _, name string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "start:"+name)
	f.starts[spanID] = name
}

func (f *fakeRenderer) OnTaskLog(spanID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "log")
	f.logs[spanID] = append(f.logs[spanID], data...)
}

func (f *fakeRenderer) OnTaskComplete(spanID string, _ time.Time, err error, cached bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "complete")
	f.completes = append(f.completes, completion{spanID: spanID, err: err, cached: cached})
}

func (f *fakeRenderer) snapshot() ([]string, []completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...), append([]completion(nil), f.completes...)
}
