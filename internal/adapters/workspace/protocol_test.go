package workspace_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/adapters/workspace"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func fixture(root string) *domain.Workspace {
	return &domain.Workspace{
		Root: root,
		Units: []domain.Unit{
			{ID: "a", Path: "apps/a", Deps: []domain.UnitID{"b"}},
			{ID: "b", Path: "libs/b"},
		},
		Tasks: []domain.TaskDefinition{{Kind: "build", Cacheable: true}},
		Settings: domain.Settings{
			Concurrency: 2,
			Cache:       domain.CacheSettings{Backend: domain.BackendMemory},
		},
		Commands: map[domain.TaskKind]domain.Command{
			"build": {Args: []string{"make"}, Env: map[string]string{"GOFLAGS": "-trimpath"}},
		},
	}
}

func newProtocol(t *testing.T, root string) (*workspace.Protocol, *mocks.MockExecutor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(root).Return(fixture(root), nil)
	executor := mocks.NewMockExecutor(ctrl)

	p := workspace.NewProtocol(loader, executor)
	require.NoError(t, p.Initialize(context.Background(), root))
	return p, executor
}

func TestProtocol_Catalog(t *testing.T) {
	root := t.TempDir()
	p, _ := newProtocol(t, root)
	ctx := context.Background()

	units, err := p.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	graph, err := p.UnitGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.UnitID][]domain.UnitID{"a": {"b"}, "b": nil}, graph)

	tasks, err := p.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskKind("build"), tasks[0].Kind)

	assert.Equal(t, 2, p.Settings().Concurrency)
	assert.Equal(t, domain.BackendMemory, p.Settings().Cache.Backend)
}

func TestProtocol_NotInitialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := workspace.NewProtocol(mocks.NewMockConfigLoader(ctrl), mocks.NewMockExecutor(ctrl))

	_, err := p.Units(context.Background())
	require.ErrorIs(t, err, domain.ErrWorkspaceNotLoaded)
	assert.Equal(t, domain.Settings{}, p.Settings())

	status, err := p.Execute(context.Background(), domain.NewTaskName("a", "build"), "log", "run")
	require.ErrorIs(t, err, domain.ErrWorkspaceNotLoaded)
	assert.Equal(t, domain.ExecCrash, status)
}

func TestProtocol_InitializeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("/nowhere").Return(nil, domain.ErrConfigNotFound)

	p := workspace.NewProtocol(loader, mocks.NewMockExecutor(ctrl))
	require.ErrorIs(t, p.Initialize(context.Background(), "/nowhere"), domain.ErrConfigNotFound)
}

func TestProtocol_Execute(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, ".kiln", "logs", "a", "build.log")

	tests := []struct {
		name       string
		execErr    error
		wantStatus domain.ExecStatus
		wantErr    bool
	}{
		{name: "ok", wantStatus: domain.ExecOK},
		{
			name:       "non-zero exit",
			execErr:    zerr.With(zerr.Wrap(domain.ErrCommandFailed, "make exited with status 2"), "exit_code", 2),
			wantStatus: domain.ExecFail,
		},
		{
			name:       "cannot start",
			execErr:    zerr.New("failed to start pty"),
			wantStatus: domain.ExecCrash,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, executor := newProtocol(t, root)
			executor.EXPECT().
				Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, cmd *domain.Command, stdout, _ io.Writer) error {
					assert.Equal(t, []string{"make"}, cmd.Args)
					assert.Equal(t, filepath.Join(root, "apps", "a"), cmd.WorkingDir)
					assert.Equal(t, map[string]string{
						"GOFLAGS":           "-trimpath",
						"KILN_BUILD_RUN_ID": "run-1",
						"KILN_UNIT":         "a",
						"KILN_TASK":         "a:build",
						"KILN_ROOT":         root,
					}, cmd.Env)
					_, err := io.WriteString(stdout, "building\n")
					require.NoError(t, err)
					return tt.execErr
				})

			status, err := p.Execute(context.Background(), domain.NewTaskName("a", "build"), logPath, "run-1")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, status)

			content, readErr := os.ReadFile(logPath)
			require.NoError(t, readErr)
			assert.Contains(t, string(content), "building")
		})
	}
}

func TestProtocol_Execute_UnknownTask(t *testing.T) {
	root := t.TempDir()
	p, _ := newProtocol(t, root)

	status, err := p.Execute(context.Background(), domain.NewTaskName("a", "lint"), filepath.Join(root, "x.log"), "run")
	require.ErrorIs(t, err, domain.ErrEmptyCommand)
	assert.Equal(t, domain.ExecCrash, status)
}

func TestProtocol_WithShellExecutor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, domain.WorkFileName), `
units: ["*"]
tasks:
  build:
    cmd: ["sh", "-c", "mkdir -p dist && echo $KILN_TASK > dist/out.txt"]
    outputs: ["dist"]
  check:
    cmd: ["sh", "-c", "echo broken; exit 1"]
`)
	writeFile(t, filepath.Join(root, "lib", domain.UnitFileName), "name: lib\n")

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	p := workspace.NewProtocol(config.NewLoader(logger), shell.NewExecutor())
	require.NoError(t, p.Initialize(context.Background(), root))
	t.Cleanup(func() { _ = p.Close() })

	logPath := filepath.Join(root, domain.TaskLogPath(domain.NewTaskName("lib", "build")))
	status, err := p.Execute(context.Background(), domain.NewTaskName("lib", "build"), logPath, "run-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecOK, status)

	out, err := os.ReadFile(filepath.Join(root, "lib", "dist", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "lib:build\n", string(out))

	logPath = filepath.Join(root, domain.TaskLogPath(domain.NewTaskName("lib", "check")))
	status, err = p.Execute(context.Background(), domain.NewTaskName("lib", "check"), logPath, "run-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecFail, status)

	logContent, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "broken")
	assert.Contains(t, string(logContent), domain.ErrCommandFailed.Error())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
}
