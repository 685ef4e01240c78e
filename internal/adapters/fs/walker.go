// Package fs provides file system adapters for walking, hashing and verifying files.
package fs

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
)

// alwaysSkipped are directories never considered part of any input.
var alwaysSkipped = []string{".git", ".jj", domain.KilnDirName}

// Walker provides file walking functionality.
type Walker struct {
	open func(root string) fs.FS
}

// NewWalker creates a new Walker over the host file system.
func NewWalker() *Walker {
	return &Walker{open: os.DirFS}
}

// WalkFiles yields every regular file and symlink below root in lexical order.
// Directories themselves are never yielded, so an empty directory contributes nothing.
// Paths are prefixed by root. A read error is yielded once with an empty path and ends the walk;
// callers must not treat the files seen so far as the whole tree.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = fs.WalkDir(w.open(root), ".", func(rel string, d fs.DirEntry, err error) error {
			if err != nil {
				yield("", err)
				return fs.SkipAll
			}
			if rel != "." && w.ignored(d.Name(), ignores) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !yield(filepath.Join(root, filepath.FromSlash(rel)), nil) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// ignored reports whether a base name matches the skip list or an ignore pattern.
func (w *Walker) ignored(name string, ignores []string) bool {
	if slices.Contains(alwaysSkipped, name) {
		return true
	}
	for _, pattern := range ignores {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
