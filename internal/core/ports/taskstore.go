package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// CacheLookup is the task store's knowledge of a fingerprint.
type CacheLookup struct {
	Verdict domain.CachedVerdict
	// Blob is the bundle of the successful run, set for ok and flaky verdicts.
	Blob domain.BlobID
}

// StoredBundle describes a bundle written by Put.
type StoredBundle struct {
	Blob  domain.BlobID
	Files []string
}

// TaskStore stores task outputs and verdicts keyed by fingerprint.
//
//go:generate mockgen -source=taskstore.go -destination=mocks/mock_taskstore.go -package=mocks
type TaskStore interface {
	// Lookup returns the cached verdict of a task at a fingerprint.
	Lookup(ctx context.Context, name domain.TaskName, fp domain.Fingerprint) (CacheLookup, error)
	// Restore unpacks a bundle under root and returns the restored files.
	Restore(ctx context.Context, root string, blob domain.BlobID) ([]string, error)
	// Purge deletes the output locations under root whose policy asks for it.
	Purge(root string, outputs []domain.OutputLocation) error
	// Put archives outputs under root and records the verdict.
	Put(
		ctx context.Context,
		root string,
		name domain.TaskName,
		fp domain.Fingerprint,
		verdict domain.Verdict,
		outputs []string,
	) (StoredBundle, error)
}

// AssetPublisher uploads task assets.
type AssetPublisher interface {
	// Publish uploads the given repo-relative files and returns the published steps.
	Publish(
		ctx context.Context,
		root string,
		name domain.TaskName,
		fp domain.Fingerprint,
		paths []string,
	) ([]domain.AssetPublished, error)
}
