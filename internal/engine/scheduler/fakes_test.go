package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/storage"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

// fakeRepo executes tasks by writing their declared outputs.
type fakeRepo struct {
	root    string
	outputs map[domain.TaskName][]string
	// behave overrides the outcome of a task. It may block.
	behave func(ctx context.Context, name domain.TaskName) (domain.ExecStatus, error)

	mu      sync.Mutex
	calls   map[domain.TaskName]int
	running int
	peak    int
}

func newFakeRepo(root string) *fakeRepo {
	return &fakeRepo{
		root:    root,
		outputs: make(map[domain.TaskName][]string),
		calls:   make(map[domain.TaskName]int),
	}
}

func (r *fakeRepo) Initialize(context.Context, string) error { return nil }

func (r *fakeRepo) Units(context.Context) ([]domain.Unit, error) { return nil, nil }

func (r *fakeRepo) UnitGraph(context.Context) (map[domain.UnitID][]domain.UnitID, error) {
	return nil, nil
}

func (r *fakeRepo) Tasks(context.Context) ([]domain.TaskDefinition, error) { return nil, nil }

func (r *fakeRepo) Settings() domain.Settings { return domain.Settings{} }

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) Execute(
	ctx context.Context,
	name domain.TaskName,
	logPath, _ string,
) (domain.ExecStatus, error) {
	r.mu.Lock()
	r.calls[name]++
	r.running++
	r.peak = max(r.peak, r.running)
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	if err := os.MkdirAll(filepath.Dir(logPath), domain.DirPerm); err != nil {
		return domain.ExecCrash, err
	}
	if err := os.WriteFile(logPath, []byte("running "+name.String()+"\n"), domain.FilePerm); err != nil {
		return domain.ExecCrash, err
	}

	if r.behave != nil {
		status, err := r.behave(ctx, name)
		if err != nil || status != domain.ExecOK {
			return status, err
		}
	}

	for _, out := range r.outputs[name] {
		path := filepath.Join(r.root, filepath.FromSlash(out))
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return domain.ExecCrash, err
		}
		if err := os.WriteFile(path, []byte(name.String()), domain.FilePerm); err != nil {
			return domain.ExecCrash, err
		}
	}
	return domain.ExecOK, nil
}

func (r *fakeRepo) Calls(name domain.TaskName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *fakeRepo) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// fakeLedger collects ledger entries.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[domain.TaskName]ports.LedgerEntry
}

func (l *fakeLedger) Record(entry ports.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = make(map[domain.TaskName]ports.LedgerEntry)
	}
	l.entries[entry.TaskName] = entry
	return nil
}

// stepRecorder collects step records.
type stepRecorder struct {
	steps []domain.Step
}

func (r *stepRecorder) Process(step domain.Step) {
	r.steps = append(r.steps, step)
}

func (r *stepRecorder) Types() []domain.StepType {
	types := make([]domain.StepType, len(r.steps))
	for i, s := range r.steps {
		types[i] = s.StepType()
	}
	return types
}

// upstream depends on kind in every direct dependency unit.
func upstream(kind domain.TaskKind) func(domain.Unit) []domain.TaskName {
	return func(u domain.Unit) []domain.TaskName {
		deps := make([]domain.TaskName, 0, len(u.Deps))
		for _, d := range u.Deps {
			deps = append(deps, domain.NewTaskName(d, kind))
		}
		return deps
	}
}

// sameUnit depends on kind in the task's own unit.
func sameUnit(kind domain.TaskKind) func(domain.Unit) []domain.TaskName {
	return func(u domain.Unit) []domain.TaskName {
		return []domain.TaskName{domain.NewTaskName(u.ID, kind)}
	}
}

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	ctrl := gomock.NewController(t)

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil }).AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()
	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	return scheduler.NewScheduler(fs.NewHasher(fs.NewWalker(), fs.NewResolver()), fs.NewVerifier(), tracer, logger)
}

func newPlan(t *testing.T, units []domain.Unit, catalog []domain.TaskDefinition) *planner.ExecutionPlan {
	t.Helper()
	plan, err := planner.Plan(units, catalog, planner.Request{})
	require.NoError(t, err)
	return plan
}

func memoryStore() ports.TaskStore {
	return cas.NewStore(storage.NewMemory())
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}
