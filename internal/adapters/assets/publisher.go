// Package assets uploads the declared assets of successful tasks.
package assets

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Publisher implements ports.AssetPublisher on top of a storage client.
type Publisher struct {
	client   ports.StorageClient
	resolver *fs.Resolver
}

// NewPublisher creates a publisher uploading to client.
func NewPublisher(client ports.StorageClient) *Publisher {
	return &Publisher{client: client, resolver: fs.NewResolver()}
}

// Publish uploads every file named by paths. Glob patterns are expanded
// against root; a pattern matching nothing publishes nothing.
func (p *Publisher) Publish(
	ctx context.Context,
	root string,
	name domain.TaskName,
	fp domain.Fingerprint,
	paths []string,
) ([]domain.AssetPublished, error) {
	files, err := p.expand(root, paths)
	if err != nil {
		return nil, err
	}

	published := make([]domain.AssetPublished, 0, len(files))
	for _, rel := range files {
		//nolint:gosec // asset paths are declared in the workspace configuration
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrAssetPublishFailed.Error()), "path", rel), "task", name.String())
		}

		key := domain.AssetKey(name, fp, rel)
		if err := p.client.PutObject(ctx, key, content); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrAssetPublishFailed.Error()), "path", rel), "task", name.String())
		}
		published = append(published, domain.AssetPublished{
			TaskName:    name,
			Fingerprint: fp,
			Path:        rel,
			Key:         key.Digest(),
		})
	}
	return published, nil
}

func (p *Publisher) expand(root string, paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		if !fs.IsPattern(path) {
			files = append(files, filepath.ToSlash(path))
			continue
		}
		matches, err := p.resolver.Resolve(root, path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrAssetPublishFailed.Error()), "pattern", path)
		}
		files = append(files, matches...)
	}
	return files, nil
}
