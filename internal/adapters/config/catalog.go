package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// catalogBuilder turns task DTOs into the task catalog of a workspace.
type catalogBuilder struct {
	logger    ports.Logger
	ws        *domain.Workspace
	unitFiles map[domain.UnitID]*UnitFile
	allUnits  []domain.UnitID

	// available is filled once the whole catalog is known. Upstream
	// dependency functions consult it when the planner expands them.
	available map[domain.TaskName]bool
}

func newCatalogBuilder(logger ports.Logger, ws *domain.Workspace, unitFiles map[domain.UnitID]*UnitFile) *catalogBuilder {
	b := &catalogBuilder{
		logger:    logger,
		ws:        ws,
		unitFiles: unitFiles,
		available: make(map[domain.TaskName]bool),
	}
	for _, u := range ws.Units {
		b.allUnits = append(b.allUnits, u.ID)
	}
	slices.Sort(b.allUnits)
	return b
}

func (b *catalogBuilder) build(workspaceTasks map[string]TaskDTO) error {
	for _, kind := range slices.Sorted(maps.Keys(workspaceTasks)) {
		if err := b.addWorkspaceKind(kind, workspaceTasks[kind]); err != nil {
			return err
		}
	}

	for _, id := range b.allUnits {
		uf := b.unitFiles[id]
		for _, kind := range slices.Sorted(maps.Keys(uf.Commands)) {
			if _, ok := workspaceTasks[kind]; !ok {
				b.logger.Warn(fmt.Sprintf("unit %s overrides unknown task kind %s, ignoring", id, kind))
			}
		}
		for _, kind := range slices.Sorted(maps.Keys(uf.Tasks)) {
			if err := b.addUnitKind(id, kind, uf.Tasks[kind]); err != nil {
				return err
			}
		}
	}

	for _, def := range b.ws.Tasks {
		scope := def.Units
		if len(scope) == 0 {
			scope = b.allUnits
		}
		for _, u := range scope {
			b.available[domain.NewTaskName(u, def.Kind)] = true
		}
	}
	return nil
}

func (b *catalogBuilder) addWorkspaceKind(kind string, dto TaskDTO) error {
	def, err := b.definition(kind, dto)
	if err != nil {
		return err
	}
	k := domain.TaskKind(kind)

	scope := b.allUnits
	if len(dto.Units) > 0 {
		scope = make([]domain.UnitID, len(dto.Units))
		for i, u := range dto.Units {
			scope[i] = domain.UnitID(u)
		}
	}

	var overridden, plain []domain.UnitID
	for _, u := range scope {
		if uf := b.unitFiles[u]; uf != nil && uf.Commands[kind] != nil {
			overridden = append(overridden, u)
		} else {
			plain = append(plain, u)
		}
	}

	if len(overridden) == 0 || len(plain) > 0 {
		if len(dto.Cmd) == 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "task kind "+kind+" has no cmd"), "task_kind", kind)
		}
		base := def
		if len(overridden) > 0 {
			base.Units = plain
		}
		b.ws.Commands[k] = domain.Command{Args: dto.Cmd, Env: dto.Env}
		b.ws.Tasks = append(b.ws.Tasks, base)
	}

	for _, u := range overridden {
		args := b.unitFiles[u].Commands[kind]
		override := def
		override.Units = []domain.UnitID{u}
		override.Definition = describeCommand(args, dto.Env)
		b.setUnitCommand(u, k, domain.Command{Args: args, Env: dto.Env})
		b.ws.Tasks = append(b.ws.Tasks, override)
	}
	return nil
}

func (b *catalogBuilder) addUnitKind(unit domain.UnitID, kind string, dto TaskDTO) error {
	if len(dto.Units) > 0 {
		b.logger.Warn(fmt.Sprintf("'units' of task %s:%s is ignored in a unit file", unit, kind))
	}
	if len(dto.Cmd) == 0 {
		err := zerr.Wrap(domain.ErrInvalidConfig, fmt.Sprintf("task %s:%s has no cmd", unit, kind))
		return zerr.With(zerr.With(err, "task_kind", kind), "unit", string(unit))
	}
	def, err := b.definition(kind, dto)
	if err != nil {
		return zerr.With(err, "unit", string(unit))
	}
	def.Units = []domain.UnitID{unit}
	b.setUnitCommand(unit, def.Kind, domain.Command{Args: dto.Cmd, Env: dto.Env})
	b.ws.Tasks = append(b.ws.Tasks, def)
	return nil
}

func (b *catalogBuilder) setUnitCommand(unit domain.UnitID, kind domain.TaskKind, cmd domain.Command) {
	if b.ws.UnitCommands[unit] == nil {
		b.ws.UnitCommands[unit] = make(map[domain.TaskKind]domain.Command)
	}
	b.ws.UnitCommands[unit][kind] = cmd
}

// definition converts dto without its unit scope.
func (b *catalogBuilder) definition(kind string, dto TaskDTO) (domain.TaskDefinition, error) {
	if err := validateTaskKind(kind); err != nil {
		return domain.TaskDefinition{}, err
	}

	def := domain.TaskDefinition{
		Kind:         domain.TaskKind(kind),
		InputsInUnit: dto.Inputs,
		InputsInDeps: dto.InputsInDeps,
		Test:         dto.Test,
		Cacheable:    dto.Cache == nil || *dto.Cache,
		Shadowing:    dto.Shadowing,
		Assets:       dto.Assets,
		Definition:   describeCommand(dto.Cmd, dto.Env),
	}

	for _, o := range dto.Outputs {
		policy, err := domain.ParsePurgePolicy(o.Purge)
		if err != nil {
			return domain.TaskDefinition{}, zerr.With(zerr.With(err, "task_kind", kind), "output", o.Path)
		}
		def.Outputs = append(def.Outputs, domain.OutputLocation{Path: o.Path, Purge: policy})
	}

	static, fn, err := b.compileDependsOn(dto.DependsOn)
	if err != nil {
		return domain.TaskDefinition{}, zerr.With(err, "task_kind", kind)
	}
	def.DependsOn = static
	def.DependsOnFunc = fn
	return def, nil
}

// compileDependsOn translates dependency tokens. "unit:kind" names a task,
// "kind" refers to the same unit and "^kind" to every direct dependency unit.
func (b *catalogBuilder) compileDependsOn(tokens []string) ([]domain.TaskName, func(domain.Unit) []domain.TaskName, error) {
	var static []domain.TaskName
	var local, upstream []domain.TaskKind
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "^"):
			if err := validateTaskKind(tok[1:]); err != nil {
				return nil, nil, err
			}
			upstream = append(upstream, domain.TaskKind(tok[1:]))
		case strings.Contains(tok, ":"):
			name, err := domain.ParseTaskName(tok)
			if err != nil {
				return nil, nil, err
			}
			static = append(static, name)
		default:
			if err := validateTaskKind(tok); err != nil {
				return nil, nil, err
			}
			local = append(local, domain.TaskKind(tok))
		}
	}

	if len(local) == 0 && len(upstream) == 0 {
		return static, nil, nil
	}
	available := b.available
	fn := func(u domain.Unit) []domain.TaskName {
		var deps []domain.TaskName
		for _, k := range local {
			deps = append(deps, domain.NewTaskName(u.ID, k))
		}
		for _, k := range upstream {
			for _, dep := range u.Deps {
				if name := domain.NewTaskName(dep, k); available[name] {
					deps = append(deps, name)
				}
			}
		}
		return deps
	}
	return static, fn, nil
}
