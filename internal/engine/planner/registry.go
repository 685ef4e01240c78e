package planner

import (
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

type registeredOutput struct {
	path  string
	owner domain.TaskName
}

// OutputRegistry maps declared outputs to the tasks producing them, per unit.
type OutputRegistry struct {
	byUnit map[domain.UnitID][]registeredOutput
}

// NewOutputRegistry creates an empty registry.
func NewOutputRegistry() *OutputRegistry {
	return &OutputRegistry{byUnit: make(map[domain.UnitID][]registeredOutput)}
}

// Register records that owner produces path in unit.
func (r *OutputRegistry) Register(unit domain.UnitID, path string, owner domain.TaskName) {
	r.byUnit[unit] = append(r.byUnit[unit], registeredOutput{path: path, owner: owner})
}

// Producers returns the tasks of unit whose output equals path or contains it.
func (r *OutputRegistry) Producers(unit domain.UnitID, path string) []domain.TaskName {
	var owners []domain.TaskName
	for _, out := range r.byUnit[unit] {
		if isPathPrefix(out.path, path) && !slices.Contains(owners, out.owner) {
			owners = append(owners, out.owner)
		}
	}
	return owners
}

// isPathPrefix reports whether path equals prefix or is nested under it.
func isPathPrefix(prefix, path string) bool {
	if prefix == "." || prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// overlaps reports whether one path equals or contains the other.
func overlaps(a, b string) bool {
	return isPathPrefix(a, b) || isPathPrefix(b, a)
}
