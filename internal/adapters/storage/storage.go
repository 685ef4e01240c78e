// Package storage provides the StorageClient backends of the task store.
package storage

import (
	"context"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Opener creates the storage backend selected by the workspace settings.
type Opener struct{}

// NewOpener creates a new Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open returns the backend configured in settings. Relative directories are resolved against root.
func (o *Opener) Open(ctx context.Context, root string, settings domain.CacheSettings) (ports.StorageClient, error) {
	switch settings.Backend {
	case "", domain.BackendFilesystem:
		return NewFilesystem(FilesystemDir(root, settings)), nil
	case domain.BackendMemory:
		return NewMemory(), nil
	case domain.BackendRedis:
		return NewRedis(ctx, settings.Redis)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBackend, string(settings.Backend)), "backend", settings.Backend)
	}
}

// FilesystemDir returns the absolute directory of the filesystem store.
func FilesystemDir(root string, settings domain.CacheSettings) string {
	dir := settings.Dir
	if dir == "" {
		dir = domain.DefaultStorePath()
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return dir
}
