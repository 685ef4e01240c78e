package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// UnitID identifies a buildable unit within the workspace.
type UnitID string

// TaskKind names the kind of a task, e.g. "build" or "test".
type TaskKind string

// TaskName is the composite key of a task: the unit it belongs to and its kind.
type TaskName struct {
	Unit UnitID
	Kind TaskKind
}

// NewTaskName builds a TaskName from its parts.
func NewTaskName(unit UnitID, kind TaskKind) TaskName {
	return TaskName{Unit: unit, Kind: kind}
}

// String renders the name as "unit:kind".
func (n TaskName) String() string {
	return string(n.Unit) + ":" + string(n.Kind)
}

// MarshalText implements encoding.TextMarshaler.
func (n TaskName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *TaskName) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// ParseTaskName parses a "unit:kind" string.
func ParseTaskName(s string) (TaskName, error) {
	unit, kind, ok := strings.Cut(s, ":")
	if !ok || unit == "" || kind == "" || strings.Contains(kind, ":") {
		return TaskName{}, zerr.With(zerr.Wrap(ErrInvalidTaskName, fmt.Sprintf("cannot parse %q", s)), "name", s)
	}
	return TaskName{Unit: UnitID(unit), Kind: TaskKind(kind)}, nil
}

// PurgePolicy controls whether an output location is deleted before restore or run.
type PurgePolicy int

const (
	// PurgeAlways deletes the output location before restoring or running.
	PurgeAlways PurgePolicy = iota
	// PurgeNever leaves existing content in place.
	PurgeNever
)

// String returns the configuration spelling of the policy.
func (p PurgePolicy) String() string {
	if p == PurgeNever {
		return "never"
	}
	return "always"
}

// ParsePurgePolicy converts a configuration value into a PurgePolicy.
// The empty string selects PurgeAlways.
func ParsePurgePolicy(s string) (PurgePolicy, error) {
	switch s {
	case "", "always":
		return PurgeAlways, nil
	case "never":
		return PurgeNever, nil
	default:
		return PurgeAlways, zerr.With(zerr.Wrap(ErrInvalidPurgePolicy, s), "policy", s)
	}
}

// OutputLocation is a repo-relative output path and its purge policy.
type OutputLocation struct {
	Path  string      `json:"path"`
	Purge PurgePolicy `json:"-"`
}

// TaskDefinition is one entry of the task catalog supplied by the repo protocol.
// Paths are relative to the unit directory.
type TaskDefinition struct {
	Kind TaskKind
	// Units restricts the definition to the listed units. Empty means every unit.
	Units []UnitID
	// DependsOn lists static dependencies.
	DependsOn []TaskName
	// DependsOnFunc computes additional dependencies for a unit.
	DependsOnFunc func(Unit) []TaskName
	Outputs       []OutputLocation
	InputsInUnit  []string
	// InputsInDeps are resolved inside every direct dependency unit.
	InputsInDeps []string
	Test         bool
	Cacheable    bool
	Shadowing    bool
	Assets       []string
	// Definition describes how the task runs (e.g. its command line). It feeds the fingerprint.
	Definition string
}

// TaskInfo is the immutable, fully expanded description of a single task.
// Paths are relative to the workspace root, except InputsInDeps which stay unit-relative.
type TaskInfo struct {
	Name         TaskName
	Deps         []TaskName
	Outputs      []OutputLocation
	InputsInUnit []string
	InputsInDeps []string
	Test         bool
	Cacheable    bool
	Shadowing    bool
	Assets       []string
	Definition   string
}

// OutputPaths returns the declared output paths.
func (t *TaskInfo) OutputPaths() []string {
	paths := make([]string, len(t.Outputs))
	for i, o := range t.Outputs {
		paths[i] = o.Path
	}
	return paths
}

// Unit is a buildable unit of the workspace.
type Unit struct {
	ID   UnitID
	Path string
	Deps []UnitID
}

// Command is a fully resolved process invocation.
type Command struct {
	Args       []string
	Env        map[string]string
	WorkingDir string
}
