package fs

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Resolver expands glob input patterns.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// IsPattern reports whether p contains glob metacharacters.
func IsPattern(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// Resolve returns the repo-relative, slash-separated paths under root matching pattern, sorted.
// A pattern without matches resolves to nothing.
func (r *Resolver) Resolve(root, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
	}

	result := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(root, m)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to resolve relative path"), "path", m)
		}
		result = append(result, filepath.ToSlash(rel))
	}
	slices.Sort(result)
	return result, nil
}
