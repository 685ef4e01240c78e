package app_test

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/adapters/storage"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/adapters/workspace"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

const chainWorkfile = `
version: "1"
units: ["libs/*"]
concurrency: 2
tasks:
  build:
    cmd: ["sh", "-c", "mkdir -p dist && echo built > dist/out.txt && echo building $KILN_TASK"]
    dependsOn: ["^build"]
    inputs: ["src"]
    outputs: ["dist"]
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
}

// writeChain creates units a and b where a depends on b.
func writeChain(t *testing.T, workfile string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, domain.WorkFileName, workfile)
	writeFile(t, root, "libs/a/"+domain.UnitFileName, "name: a\ndependsOn: [b]\n")
	writeFile(t, root, "libs/a/src/main.txt", "a")
	writeFile(t, root, "libs/b/"+domain.UnitFileName, "name: b\n")
	writeFile(t, root, "libs/b/src/main.txt", "b")
	return root
}

type testApp struct {
	app     *app.App
	logger  *mocks.MockLogger
	watcher *mocks.MockWatcher
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	loader := config.NewLoader(log)
	repo := workspace.NewProtocol(loader, shell.NewExecutor())
	tracer := telemetry.NewOTelTracer(nil)
	sched := scheduler.NewScheduler(fs.NewHasher(fs.NewWalker(), fs.NewResolver()), fs.NewVerifier(), tracer, log)
	w := mocks.NewMockWatcher(ctrl)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	a := app.New(loader, repo, sched, tracer, storage.NewOpener(), w, log).WithOutput(stdout, stderr)
	return &testApp{app: a, logger: log, watcher: w, stdout: stdout, stderr: stderr}
}

func TestApp_Run_ExecutesThenCaches(t *testing.T) {
	root := writeChain(t, chainWorkfile)
	ta := newTestApp(t)
	ta.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	opts := app.RunOptions{OutputMode: "linear", Cwd: filepath.Join(root, "libs", "a")}
	require.NoError(t, ta.app.Run(context.Background(), opts))

	assert.Contains(t, ta.stdout.String(), "[b:build] building b:build")
	assert.Contains(t, ta.stderr.String(), "2 executed, 0 cached, 0 failed")
	assert.FileExists(t, filepath.Join(root, "libs", "a", "dist", "out.txt"))
	assert.FileExists(t, filepath.Join(root, domain.DefaultStepLogPath()))
	assert.FileExists(t, filepath.Join(root, domain.DefaultLedgerPath()))
	assert.FileExists(t, filepath.Join(root, domain.TaskLogPath(domain.NewTaskName("a", "build"))))

	ta.stderr.Reset()
	require.NoError(t, os.RemoveAll(filepath.Join(root, "libs", "a", "dist")))
	require.NoError(t, ta.app.Run(context.Background(), opts))

	assert.Contains(t, ta.stderr.String(), "0 executed, 2 cached, 0 failed")
	assert.FileExists(t, filepath.Join(root, "libs", "a", "dist", "out.txt"), "outputs are restored from the store")
}

func TestApp_Run_FailingTask(t *testing.T) {
	root := writeChain(t, `
version: "1"
units: ["libs/*"]
tasks:
  build:
    cmd: ["sh", "-c", "exit 3"]
    dependsOn: ["^build"]
`)
	ta := newTestApp(t)
	ta.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	err := ta.app.Run(context.Background(), app.RunOptions{OutputMode: "linear", Cwd: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.True(t, domain.IsFailure(err))
	assert.Contains(t, ta.stderr.String(), "[b:build] ✗ Failed after")
}

func TestApp_Run_UnknownUnit(t *testing.T) {
	root := writeChain(t, chainWorkfile)
	ta := newTestApp(t)

	err := ta.app.Run(context.Background(), app.RunOptions{
		OutputMode: "linear",
		Units:      []domain.UnitID{"missing"},
		Cwd:        root,
	})
	require.ErrorIs(t, err, domain.ErrUnknownUnit)
	assert.True(t, domain.IsFailure(err))
}

func TestApp_Run_NoWorkspace(t *testing.T) {
	ta := newTestApp(t)

	err := ta.app.Run(context.Background(), app.RunOptions{Cwd: t.TempDir()})
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestApp_Plan(t *testing.T) {
	root := writeChain(t, chainWorkfile)
	ta := newTestApp(t)

	err := ta.app.Plan(context.Background(), app.RunOptions{
		Kinds: []domain.TaskKind{"build"},
		Units: []domain.UnitID{"a"},
		Cwd:   root,
	})
	require.NoError(t, err)

	assert.Equal(t, "  b:build\n* a:build <- b:build\n2 task(s), 1 target(s)\n", ta.stdout.String())
	assert.NoFileExists(t, filepath.Join(root, "libs", "a", "dist", "out.txt"), "plan does not execute")
}

func TestApp_Clean(t *testing.T) {
	tests := []struct {
		name    string
		opts    app.CleanOptions
		removed []string
		kept    []string
	}{
		{
			name:    "store only",
			removed: []string{domain.DefaultStorePath()},
			kept:    []string{domain.DefaultLogsPath(), domain.DefaultStepLogPath(), domain.DefaultLedgerPath()},
		},
		{
			name:    "logs",
			opts:    app.CleanOptions{Logs: true},
			removed: []string{domain.DefaultStorePath(), domain.DefaultLogsPath()},
			kept:    []string{domain.DefaultStepLogPath(), domain.DefaultLedgerPath()},
		},
		{
			name:    "all",
			opts:    app.CleanOptions{All: true},
			removed: []string{domain.DefaultKilnPath()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeChain(t, chainWorkfile)
			writeFile(t, root, filepath.Join(domain.DefaultStorePath(), "objects", "x"), "x")
			writeFile(t, root, filepath.Join(domain.DefaultLogsPath(), "a", "build.log"), "log")
			writeFile(t, root, domain.DefaultStepLogPath(), "[]")
			writeFile(t, root, domain.DefaultLedgerPath(), "")

			ta := newTestApp(t)
			ta.logger.EXPECT().Info(gomock.Any()).AnyTimes()

			opts := tt.opts
			opts.Cwd = root
			require.NoError(t, ta.app.Clean(context.Background(), opts))

			for _, p := range tt.removed {
				assert.NoFileExists(t, filepath.Join(root, p))
				assert.NoDirExists(t, filepath.Join(root, p))
			}
			for _, p := range tt.kept {
				_, err := os.Stat(filepath.Join(root, p))
				assert.NoError(t, err, p)
			}
		})
	}
}

func TestApp_Clean_RemoteBackend(t *testing.T) {
	root := writeChain(t, strings.Replace(chainWorkfile, "concurrency: 2", "cache: {backend: memory}", 1))
	ta := newTestApp(t)
	ta.logger.EXPECT().Info("Nothing to clean for the memory backend")

	require.NoError(t, ta.app.Clean(context.Background(), app.CleanOptions{Cwd: root}))
}

func TestApp_Watch_RerunsOnChange(t *testing.T) {
	root := writeChain(t, chainWorkfile)
	ta := newTestApp(t)
	ta.app.WithOutput(io.Discard, io.Discard)

	watching := make(chan struct{}, 10)
	ta.logger.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		if msg == "Watching for changes..." {
			watching <- struct{}{}
		}
	}).AnyTimes()

	events := make(chan ports.WatchEvent, 1)
	ta.watcher.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil)
	ta.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
		for e := range events {
			if !yield(e) {
				return
			}
		}
	}))
	ta.watcher.EXPECT().Stop().DoAndReturn(func() error {
		close(events)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ta.app.Watch(ctx, app.RunOptions{OutputMode: "linear", Cwd: root})
	}()

	waitFor(t, watching)
	events <- ports.WatchEvent{Path: filepath.Join(root, "libs", "b", "src", "main.txt"), Operation: ports.OpWrite}
	waitFor(t, watching)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for watch cycle")
	}
}
