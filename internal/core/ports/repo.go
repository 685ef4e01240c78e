package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// RepoProtocol is the boundary between the engine and the workspace it builds.
// The engine never inspects how a task is executed.
//
//go:generate mockgen -source=repo.go -destination=mocks/mock_repo.go -package=mocks
type RepoProtocol interface {
	// Initialize loads the workspace rooted at root.
	Initialize(ctx context.Context, root string) error
	// Units returns the units of the workspace.
	Units(ctx context.Context) ([]domain.Unit, error)
	// UnitGraph returns the direct dependencies of every unit.
	UnitGraph(ctx context.Context) (map[domain.UnitID][]domain.UnitID, error)
	// Tasks returns the task catalog.
	Tasks(ctx context.Context) ([]domain.TaskDefinition, error)
	// Settings returns the workspace options.
	Settings() domain.Settings
	// Execute runs a task, writing its combined output to outputLogPath.
	// A returned error means the task could not be run at all.
	Execute(ctx context.Context, name domain.TaskName, outputLogPath, buildRunID string) (domain.ExecStatus, error)
	// Close releases resources held by the protocol.
	Close() error
}

// ConfigLoader loads workspace configuration.
type ConfigLoader interface {
	// FindRoot walks up from cwd to the directory holding the workspace file.
	FindRoot(cwd string) (string, error)
	// Load reads the workspace rooted at root.
	Load(root string) (*domain.Workspace, error)
}
