package fs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Fingerprinter = (*Hasher)(nil)

// missingToken stands in for the content of an input that does not exist.
const missingToken = "\x00missing\x00"

// Hasher computes content fingerprints of input trees and tasks.
type Hasher struct {
	walker   *Walker
	resolver *Resolver
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker, resolver *Resolver) *Hasher {
	return &Hasher{walker: walker, resolver: resolver}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// HashTree hashes the file or directory at path (relative to root).
//
// Only names relative to path, file contents and the executable bit contribute.
// Modification times and empty directories do not. A missing path hashes to a fixed token,
// and a glob pattern hashes the sorted set of its matches.
func (h *Hasher) HashTree(root, path string, ignore []string) (string, error) {
	hasher := xxhash.New()

	if IsPattern(path) {
		matches, err := h.resolver.Resolve(root, path)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			_, _ = hasher.WriteString(missingToken)
		}
		for _, m := range matches {
			sub, err := h.HashTree(root, m, ignore)
			if err != nil {
				return "", err
			}
			_, _ = hasher.WriteString(m)
			_, _ = hasher.Write([]byte{0})
			_, _ = hasher.WriteString(sub)
			_, _ = hasher.Write([]byte{0})
		}
		return fmt.Sprintf("%016x", hasher.Sum64()), nil
	}

	base := filepath.Join(root, filepath.FromSlash(path))
	info, err := os.Lstat(base)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			_, _ = hasher.WriteString(missingToken)
			return fmt.Sprintf("%016x", hasher.Sum64()), nil
		}
		return "", zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", base)
	}

	if !info.IsDir() {
		if err := h.hashEntry(base, ".", info, hasher); err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", hasher.Sum64()), nil
	}

	for file, err := range h.walker.WalkFiles(base, ignore) {
		if err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrFingerprintFailed, err.Error()), "path", base)
		}
		rel, err := filepath.Rel(base, file)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to resolve relative path"), "path", file)
		}
		fi, err := os.Lstat(file)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", file)
		}
		if err := h.hashEntry(file, filepath.ToSlash(rel), fi, hasher); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// hashEntry writes name, mode marker and content hash of a single file or symlink.
func (h *Hasher) hashEntry(path, name string, info iofs.FileInfo, hasher *xxhash.Digest) error {
	_, _ = hasher.WriteString(name)
	_, _ = hasher.Write([]byte{0})

	if info.Mode()&iofs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read symlink"), "path", path)
		}
		_, _ = hasher.WriteString("l")
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(filepath.ToSlash(target))
		_, _ = hasher.Write([]byte{0})
		return nil
	}

	mode := "f"
	if info.Mode().Perm()&0o111 != 0 {
		mode = "x"
	}
	_, _ = hasher.WriteString(mode)
	_, _ = hasher.Write([]byte{0})

	fileHash, err := h.ComputeFileHash(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "file", path)
	}
	return binary.Write(hasher, binary.LittleEndian, fileHash)
}

// Fingerprint combines the declaration, dependency fingerprints and input trees.
// Input trees are hashed concurrently; the result only depends on their order in in.Inputs.
func (h *Hasher) Fingerprint(ctx context.Context, root string, in ports.FingerprintInput) (domain.Fingerprint, error) {
	hashes := make([]string, len(in.Inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, input := range in.Inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := h.HashTree(root, input.Path, in.Ignore)
			if err != nil {
				return zerr.With(err, "input", input.Path)
			}
			hashes[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", zerr.Wrap(err, domain.ErrFingerprintFailed.Error())
	}

	hasher := xxhash.New()
	_, _ = hasher.WriteString(in.Declaration)
	_, _ = hasher.Write([]byte{0, 0}) // Section separator

	for _, dep := range in.Deps {
		_, _ = hasher.WriteString(string(dep))
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0})

	for i, input := range in.Inputs {
		_, _ = hasher.WriteString(input.Label)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(hashes[i])
		_, _ = hasher.Write([]byte{0})
	}

	return domain.Fingerprint(fmt.Sprintf("%016x", hasher.Sum64())), nil
}
