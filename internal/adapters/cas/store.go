// Package cas implements the content-addressable task store.
package cas

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TaskStore = (*Store)(nil)

// verdictValue is the payload stored under a verdict key.
type verdictValue struct {
	BlobID domain.BlobID `json:"blobId"`
}

// Store implements ports.TaskStore on top of a StorageClient.
type Store struct {
	client ports.StorageClient
}

// NewStore creates a task store backed by client.
func NewStore(client ports.StorageClient) *Store {
	return &Store{client: client}
}

// Lookup probes the ok and fail verdicts of name at fp. Both present means flaky.
func (s *Store) Lookup(ctx context.Context, name domain.TaskName, fp domain.Fingerprint) (ports.CacheLookup, error) {
	okKey := domain.VerdictKey(name, fp, domain.VerdictOK)
	hasOK, err := s.client.ObjectExists(ctx, okKey)
	if err != nil {
		return ports.CacheLookup{}, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", okKey.String())
	}
	failKey := domain.VerdictKey(name, fp, domain.VerdictFail)
	hasFail, err := s.client.ObjectExists(ctx, failKey)
	if err != nil {
		return ports.CacheLookup{}, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", failKey.String())
	}

	switch {
	case !hasOK && !hasFail:
		return ports.CacheLookup{Verdict: domain.CachedAbsent}, nil
	case !hasOK:
		return ports.CacheLookup{Verdict: domain.CachedFail}, nil
	}

	raw, err := s.client.GetObject(ctx, okKey)
	if err != nil {
		return ports.CacheLookup{}, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", okKey.String())
	}
	var value verdictValue
	if err := json.Unmarshal(raw, &value); err != nil || value.BlobID == "" {
		return ports.CacheLookup{}, zerr.With(zerr.Wrap(domain.ErrCorruptVerdict, name.String()), "fingerprint", string(fp))
	}

	verdict := domain.CachedOK
	if hasFail {
		verdict = domain.CachedFlaky
	}
	return ports.CacheLookup{Verdict: verdict, Blob: value.BlobID}, nil
}

// Restore unpacks the bundle blob below root.
func (s *Store) Restore(ctx context.Context, root string, blob domain.BlobID) ([]string, error) {
	if blob == domain.EmptyBlobID {
		return nil, nil
	}
	key := domain.BlobKey(blob)
	bundle, err := s.client.GetObject(ctx, key)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "blob", string(blob))
	}
	if domain.BlobIDOf(bundle) != blob {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "content does not match its id"), "blob", string(blob))
	}
	files, err := Unpack(root, bundle)
	if err != nil {
		return nil, zerr.With(err, "blob", string(blob))
	}
	return files, nil
}

// Put archives outputs and records verdict for name at fp.
// Only ok and fail verdicts can be stored.
func (s *Store) Put(
	ctx context.Context,
	root string,
	name domain.TaskName,
	fp domain.Fingerprint,
	verdict domain.Verdict,
	outputs []string,
) (ports.StoredBundle, error) {
	if verdict != domain.VerdictOK && verdict != domain.VerdictFail {
		return ports.StoredBundle{}, zerr.With(
			zerr.Wrap(domain.ErrStoreWriteFailed, "only ok and fail verdicts are stored"),
			"verdict", verdict.String(),
		)
	}

	bundle, files, err := Pack(root, outputs)
	if err != nil {
		return ports.StoredBundle{}, zerr.With(err, "task", name.String())
	}
	blob := domain.BlobIDOf(bundle)

	if blob != domain.EmptyBlobID {
		key := domain.BlobKey(blob)
		exists, err := s.client.ObjectExists(ctx, key)
		if err != nil {
			return ports.StoredBundle{}, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "blob", string(blob))
		}
		if !exists {
			if err := s.client.PutObject(ctx, key, bundle); err != nil {
				return ports.StoredBundle{}, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "blob", string(blob))
			}
		}
	}

	value, err := json.Marshal(verdictValue{BlobID: blob})
	if err != nil {
		return ports.StoredBundle{}, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	key := domain.VerdictKey(name, fp, verdict)
	if err := s.client.PutObject(ctx, key, value); err != nil {
		return ports.StoredBundle{}, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key.String())
	}
	return ports.StoredBundle{Blob: blob, Files: files}, nil
}

// Purge removes every output location with PurgeAlways below root.
func (s *Store) Purge(root string, outputs []domain.OutputLocation) error {
	for _, out := range outputs {
		if out.Purge != domain.PurgeAlways {
			continue
		}
		local := filepath.FromSlash(out.Path)
		if !filepath.IsLocal(local) {
			return zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, out.Path), "path", out.Path)
		}
		if err := os.RemoveAll(filepath.Join(root, local)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "failed to purge output"), "path", out.Path)
		}
	}
	return nil
}
