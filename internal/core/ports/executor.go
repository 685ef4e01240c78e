package ports

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
)

// Executor defines the interface for executing commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and streams its output.
	// It returns an error if the command could not be started or exited non-zero.
	Execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) error
}
