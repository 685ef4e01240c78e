// Package workspace implements the repo protocol over a kiln.work.yaml workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment variables set for every task command.
const (
	EnvBuildRunID = "KILN_BUILD_RUN_ID"
	EnvUnit       = "KILN_UNIT"
	EnvTask       = "KILN_TASK"
	EnvRoot       = "KILN_ROOT"
)

// Protocol implements ports.RepoProtocol. Units and tasks come from the
// configuration loader and commands run through the executor.
type Protocol struct {
	loader   ports.ConfigLoader
	executor ports.Executor

	mu sync.RWMutex
	ws *domain.Workspace
}

// NewProtocol creates a protocol that has not loaded a workspace yet.
func NewProtocol(loader ports.ConfigLoader, executor ports.Executor) *Protocol {
	return &Protocol{loader: loader, executor: executor}
}

// Initialize loads the workspace rooted at root. Calling it again reloads the configuration.
func (p *Protocol) Initialize(_ context.Context, root string) error {
	ws, err := p.loader.Load(root)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.ws = ws
	p.mu.Unlock()
	return nil
}

func (p *Protocol) workspace() (*domain.Workspace, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ws == nil {
		return nil, domain.ErrWorkspaceNotLoaded
	}
	return p.ws, nil
}

// Units returns the units of the workspace.
func (p *Protocol) Units(_ context.Context) ([]domain.Unit, error) {
	ws, err := p.workspace()
	if err != nil {
		return nil, err
	}
	return slices.Clone(ws.Units), nil
}

// UnitGraph returns the direct dependencies of every unit.
func (p *Protocol) UnitGraph(_ context.Context) (map[domain.UnitID][]domain.UnitID, error) {
	ws, err := p.workspace()
	if err != nil {
		return nil, err
	}
	graph := make(map[domain.UnitID][]domain.UnitID, len(ws.Units))
	for _, u := range ws.Units {
		graph[u.ID] = slices.Clone(u.Deps)
	}
	return graph, nil
}

// Tasks returns the task catalog.
func (p *Protocol) Tasks(_ context.Context) ([]domain.TaskDefinition, error) {
	ws, err := p.workspace()
	if err != nil {
		return nil, err
	}
	return slices.Clone(ws.Tasks), nil
}

// Settings returns the workspace options, or the zero value before Initialize.
func (p *Protocol) Settings() domain.Settings {
	ws, err := p.workspace()
	if err != nil {
		return domain.Settings{}
	}
	return ws.Settings
}

// Execute runs the command of name in its unit directory. The combined
// output is written to outputLogPath. A non-zero exit is reported as
// ExecFail, anything that prevents the command from running as an error.
func (p *Protocol) Execute(
	ctx context.Context,
	name domain.TaskName,
	outputLogPath, buildRunID string,
) (domain.ExecStatus, error) {
	ws, err := p.workspace()
	if err != nil {
		return domain.ExecCrash, err
	}

	cmd, ok := ws.CommandFor(name)
	if !ok {
		return domain.ExecCrash, zerr.With(zerr.Wrap(domain.ErrEmptyCommand, name.String()), "task", name.String())
	}

	if err := os.MkdirAll(filepath.Dir(outputLogPath), domain.DirPerm); err != nil {
		return domain.ExecCrash, zerr.With(zerr.Wrap(err, domain.ErrLogFileFailed.Error()), "path", outputLogPath)
	}
	//nolint:gosec // the log path is derived from the workspace root
	logFile, err := os.Create(outputLogPath)
	if err != nil {
		return domain.ExecCrash, zerr.With(zerr.Wrap(err, domain.ErrLogFileFailed.Error()), "path", outputLogPath)
	}
	defer func() { _ = logFile.Close() }()

	cmd.WorkingDir = filepath.Join(ws.Root, filepath.FromSlash(cmd.WorkingDir))
	env := make(map[string]string, len(cmd.Env)+4)
	maps.Copy(env, cmd.Env)
	env[EnvBuildRunID] = buildRunID
	env[EnvUnit] = string(name.Unit)
	env[EnvTask] = name.String()
	env[EnvRoot] = ws.Root
	cmd.Env = env

	err = p.executor.Execute(ctx, &cmd, logFile, logFile)
	switch {
	case err == nil:
		return domain.ExecOK, nil
	case errors.Is(err, domain.ErrCommandFailed):
		_, _ = fmt.Fprintf(logFile, "\n%s\n", err)
		return domain.ExecFail, nil
	default:
		return domain.ExecCrash, zerr.With(err, "task", name.String())
	}
}

// Close releases resources held by the protocol.
func (p *Protocol) Close() error {
	p.mu.Lock()
	p.ws = nil
	p.mu.Unlock()
	return nil
}
