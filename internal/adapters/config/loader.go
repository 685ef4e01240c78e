// Package config provides the workspace configuration loader for kiln.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/dag"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var validUnitNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Loader implements ports.ConfigLoader for kiln.work.yaml workspaces.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// FindRoot searches upward from cwd for the directory holding kiln.work.yaml.
func (l *Loader) FindRoot(cwd string) (string, error) {
	dir := filepath.Clean(cwd)
	for {
		info, err := os.Stat(filepath.Join(dir, domain.WorkFileName))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, ""), "cwd", cwd)
		}
		dir = parent
	}
}

// Load reads the workspace file at root and every unit file it references.
func (l *Loader) Load(root string) (*domain.Workspace, error) {
	var wf WorkFile
	if err := readAndUnmarshalYAML(filepath.Join(root, domain.WorkFileName), &wf); err != nil {
		return nil, zerr.With(err, "file", domain.WorkFileName)
	}

	settings, err := resolveSettings(&wf)
	if err != nil {
		return nil, err
	}

	unitPaths, err := resolveUnitPaths(root, wf.Units)
	if err != nil {
		return nil, err
	}

	ws := &domain.Workspace{
		Root:         root,
		Settings:     settings,
		Commands:     make(map[domain.TaskKind]domain.Command),
		UnitCommands: make(map[domain.UnitID]map[domain.TaskKind]domain.Command),
	}

	unitFiles := make(map[domain.UnitID]*UnitFile)
	unitNames := make(map[string]string)
	for _, unitPath := range unitPaths {
		unit, uf, err := l.processUnit(root, unitPath, unitNames)
		if err != nil {
			return nil, err
		}
		if uf == nil {
			continue
		}
		ws.Units = append(ws.Units, unit)
		unitFiles[unit.ID] = uf
	}

	if err := validateUnitGraph(ws.Units); err != nil {
		return nil, err
	}

	b := newCatalogBuilder(l.Logger, ws, unitFiles)
	if err := b.build(wf.Tasks); err != nil {
		return nil, err
	}
	return ws, nil
}

func resolveSettings(wf *WorkFile) (domain.Settings, error) {
	if wf.Version != "" && wf.Version != "1" {
		return domain.Settings{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidConfig, "unsupported workspace version "+strconv.Quote(wf.Version)),
			"version", wf.Version,
		)
	}
	if wf.Concurrency < 0 {
		return domain.Settings{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidConfig, "concurrency must not be negative"),
			"concurrency", wf.Concurrency,
		)
	}

	settings := domain.Settings{
		Concurrency: wf.Concurrency,
		Ignore:      wf.Ignore,
		Cache: domain.CacheSettings{
			Backend:           domain.Backend(wf.Cache.Backend),
			Dir:               wf.Cache.Dir,
			Tests:             true,
			TightFingerprints: wf.Cache.TightFingerprints,
			Redis: domain.RedisSettings{
				Addr:     wf.Cache.Redis.Addr,
				Password: wf.Cache.Redis.Password,
				DB:       wf.Cache.Redis.DB,
			},
		},
	}
	if settings.Concurrency == 0 {
		settings.Concurrency = runtime.NumCPU()
	}
	if wf.Cache.Tests != nil {
		settings.Cache.Tests = *wf.Cache.Tests
	}
	if settings.Cache.Dir == "" {
		settings.Cache.Dir = domain.DefaultStorePath()
	}
	switch settings.Cache.Backend {
	case "":
		settings.Cache.Backend = domain.BackendFilesystem
	case domain.BackendFilesystem, domain.BackendMemory, domain.BackendRedis:
	default:
		return domain.Settings{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidConfig, "unknown cache backend "+strconv.Quote(wf.Cache.Backend)),
			"backend", wf.Cache.Backend,
		)
	}
	return settings, nil
}

func resolveUnitPaths(root string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid units pattern"), "pattern", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// processUnit reads the unit file in unitPath. It returns a nil file for
// matches that are not unit directories.
func (l *Loader) processUnit(root, unitPath string, unitNames map[string]string) (domain.Unit, *UnitFile, error) {
	relPath, err := filepath.Rel(root, unitPath)
	if err != nil {
		return domain.Unit{}, nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}
	relPath = filepath.ToSlash(relPath)

	info, err := os.Stat(unitPath)
	if err != nil {
		return domain.Unit{}, nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "directory", relPath)
	}
	if !info.IsDir() {
		return domain.Unit{}, nil, nil
	}

	unitFilePath := filepath.Join(unitPath, domain.UnitFileName)
	if _, err := os.Stat(unitFilePath); os.IsNotExist(err) {
		l.Logger.Warn(fmt.Sprintf("%s missing in unit %s, skipping", domain.UnitFileName, relPath))
		return domain.Unit{}, nil, nil
	}

	var uf UnitFile
	if err := readAndUnmarshalYAML(unitFilePath, &uf); err != nil {
		return domain.Unit{}, nil, zerr.With(err, "directory", relPath)
	}

	if uf.Name == "" {
		return domain.Unit{}, nil, zerr.With(zerr.Wrap(domain.ErrMissingUnitName, relPath), "directory", relPath)
	}
	if !validUnitNameRegex.MatchString(uf.Name) {
		err := zerr.With(zerr.Wrap(domain.ErrInvalidUnitName, uf.Name), "unit", uf.Name)
		return domain.Unit{}, nil, zerr.With(err, "directory", relPath)
	}
	if first, exists := unitNames[uf.Name]; exists {
		err := zerr.With(zerr.Wrap(domain.ErrDuplicateUnitName, uf.Name), "unit", uf.Name)
		err = zerr.With(err, "first_occurrence", first)
		return domain.Unit{}, nil, zerr.With(err, "duplicate_at", relPath)
	}
	unitNames[uf.Name] = relPath

	unit := domain.Unit{ID: domain.UnitID(uf.Name), Path: relPath}
	for _, dep := range uf.DependsOn {
		if !slices.Contains(unit.Deps, domain.UnitID(dep)) {
			unit.Deps = append(unit.Deps, domain.UnitID(dep))
		}
	}
	return unit, &uf, nil
}

// validateUnitGraph checks that unit dependencies exist and do not form a cycle.
func validateUnitGraph(units []domain.Unit) error {
	g := dag.New[domain.Unit]()
	for _, u := range units {
		if err := g.AddVertex(string(u.ID), u); err != nil {
			return err
		}
	}
	for _, u := range units {
		for _, dep := range u.Deps {
			if !g.Has(string(dep)) {
				msg := fmt.Sprintf("unit %s depends on %s", u.ID, dep)
				return zerr.With(zerr.Wrap(domain.ErrUnknownUnit, msg), "unit", string(dep))
			}
			if err := g.AddEdge(string(u.ID), string(dep)); err != nil {
				return err
			}
		}
	}
	return g.Validate()
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is built from the workspace root
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(zerr.Wrap(domain.ErrConfigParseFailed, parseErr.Error()), filepath.Base(configPath))
	}

	return nil
}

// validateTaskKind checks if the kind is reserved or contains invalid characters.
func validateTaskKind(kind string) error {
	if kind == "all" {
		return zerr.With(zerr.Wrap(domain.ErrReservedTaskName, ""), "task_kind", kind)
	}
	if kind == "" || strings.Contains(kind, ":") || strings.HasPrefix(kind, "^") {
		return zerr.With(zerr.Wrap(domain.ErrInvalidTaskName, strconv.Quote(kind)), "task_kind", kind)
	}
	return nil
}

// describeCommand renders the command of a task for its fingerprint.
func describeCommand(args []string, env map[string]string) string {
	var b strings.Builder
	b.WriteString("cmd")
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(a))
	}
	for _, k := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(&b, "\nenv %s=%s", k, strconv.Quote(env[k]))
	}
	return b.String()
}
