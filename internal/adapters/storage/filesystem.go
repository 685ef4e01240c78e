package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StorageClient = (*Filesystem)(nil)

// Filesystem stores objects as files below dir, sharded by the first two digest characters.
type Filesystem struct {
	dir string
}

// NewFilesystem creates a filesystem backend rooted at dir.
func NewFilesystem(dir string) *Filesystem {
	return &Filesystem{dir: dir}
}

func (f *Filesystem) path(key domain.ObjectKey) string {
	digest := key.Digest()
	return filepath.Join(f.dir, "objects", digest[:2], digest)
}

// PutObject writes content atomically through a temporary file and a rename.
func (f *Filesystem) PutObject(_ context.Context, key domain.ObjectKey, content []byte) error {
	dst := f.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	return nil
}

// GetObject reads an object. Absent objects yield ErrObjectNotFound.
func (f *Filesystem) GetObject(_ context.Context, key domain.ObjectKey) ([]byte, error) {
	path := f.path(key)
	data, err := os.ReadFile(path) //nolint:gosec // Path derived from a hex digest
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrObjectNotFound, "missing object"), "key", key.String())
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	return data, nil
}

// ObjectExists reports whether an object is stored.
func (f *Filesystem) ObjectExists(_ context.Context, key domain.ObjectKey) (bool, error) {
	path := f.path(key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	return true, nil
}
