package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// StorageClient is a key/value object store addressed by structured keys.
//
//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks
type StorageClient interface {
	// PutObject stores content under key, replacing any previous value.
	PutObject(ctx context.Context, key domain.ObjectKey, content []byte) error
	// GetObject returns the content under key, or domain.ErrObjectNotFound.
	GetObject(ctx context.Context, key domain.ObjectKey) ([]byte, error)
	// ObjectExists reports whether key holds a value.
	ObjectExists(ctx context.Context, key domain.ObjectKey) (bool, error)
}
