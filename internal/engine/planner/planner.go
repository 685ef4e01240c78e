// Package planner turns a task catalog into a validated, scope-filtered task graph.
package planner

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/dag"
	"go.trai.ch/kiln/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// Request selects the tasks of a run. Empty fields select everything.
type Request struct {
	Kinds []domain.TaskKind
	Units []domain.UnitID
}

// ExecutionPlan is the outcome of planning.
type ExecutionPlan struct {
	// Graph holds the tasks selected by the request. It is read-only once execution starts.
	Graph *dag.Graph[*tracker.Task]
	// PropagationGraph is the full task graph, taken before scope filtering.
	PropagationGraph *dag.Graph[*tracker.Task]
	Tasks            map[domain.TaskName]*tracker.Task
	Units            map[domain.UnitID]domain.Unit
	// Targets are the tasks matched directly by the request.
	Targets []domain.TaskName
}

// Plan expands the catalog over units, validates it, builds the task graph and applies req.
func Plan(units []domain.Unit, catalog []domain.TaskDefinition, req Request) (*ExecutionPlan, error) {
	index, err := indexUnits(units)
	if err != nil {
		return nil, err
	}

	infos, err := Expand(index, catalog)
	if err != nil {
		return nil, err
	}
	if err := Validate(infos); err != nil {
		return nil, err
	}

	g, err := BuildGraph(infos, index)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{
		Graph:            g,
		PropagationGraph: g.Copy(),
		Tasks:            make(map[domain.TaskName]*tracker.Task, g.Len()),
		Units:            index,
	}
	for _, id := range g.IDs() {
		task, _ := g.Vertex(id)
		plan.Tasks[task.Name()] = task
	}

	if err := plan.scope(req); err != nil {
		return nil, err
	}
	return plan, nil
}

// Task returns the runtime task for name.
func (p *ExecutionPlan) Task(name domain.TaskName) (*tracker.Task, bool) {
	t, ok := p.Tasks[name]
	return t, ok
}

// Order returns the selected tasks, dependencies first.
func (p *ExecutionPlan) Order() ([]domain.TaskName, error) {
	ids, err := p.Graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	names := make([]domain.TaskName, len(ids))
	for i, id := range ids {
		task, _ := p.Graph.Vertex(id)
		names[i] = task.Name()
	}
	return names, nil
}

// Dependencies returns the direct dependencies of name in the selected graph.
func (p *ExecutionPlan) Dependencies(name domain.TaskName) []domain.TaskName {
	ids := p.Graph.Neighbors(name.String())
	deps := make([]domain.TaskName, 0, len(ids))
	for _, id := range ids {
		task, _ := p.Graph.Vertex(id)
		deps = append(deps, task.Name())
	}
	return deps
}

func (p *ExecutionPlan) scope(req Request) error {
	for _, u := range req.Units {
		if _, ok := p.Units[u]; !ok {
			return zerr.With(zerr.Wrap(domain.ErrUnknownUnit, string(u)), "unit", string(u))
		}
	}

	var starts []string
	for _, id := range p.Graph.IDs() {
		task, _ := p.Graph.Vertex(id)
		name := task.Name()
		if len(req.Kinds) > 0 && !slices.Contains(req.Kinds, name.Kind) {
			continue
		}
		if len(req.Units) > 0 && !slices.Contains(req.Units, name.Unit) {
			continue
		}
		starts = append(starts, id)
		p.Targets = append(p.Targets, name)
	}
	if len(starts) == 0 {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrNoTasksToRun, describeRequest(req)), "kinds", req.Kinds),
			"units", req.Units,
		)
	}

	keep := p.Graph.ReachableFrom(starts, false)
	for _, id := range p.Graph.IDs() {
		if !keep[id] {
			p.Graph.RemoveVertex(id)
		}
	}
	return nil
}

func describeRequest(req Request) string {
	kinds := "any kind"
	if len(req.Kinds) > 0 {
		parts := make([]string, len(req.Kinds))
		for i, k := range req.Kinds {
			parts[i] = string(k)
		}
		kinds = "kinds " + strings.Join(parts, ", ")
	}
	units := "any unit"
	if len(req.Units) > 0 {
		parts := make([]string, len(req.Units))
		for i, u := range req.Units {
			parts[i] = string(u)
		}
		units = "units " + strings.Join(parts, ", ")
	}
	return fmt.Sprintf("nothing matches %s in %s", kinds, units)
}

func indexUnits(units []domain.Unit) (map[domain.UnitID]domain.Unit, error) {
	index := make(map[domain.UnitID]domain.Unit, len(units))
	for _, u := range units {
		if _, exists := index[u.ID]; exists {
			return nil, zerr.With(zerr.Wrap(domain.ErrDuplicateUnitName, string(u.ID)), "unit", string(u.ID))
		}
		index[u.ID] = u
	}
	for _, u := range units {
		for _, dep := range u.Deps {
			if _, ok := index[dep]; !ok {
				return nil, zerr.With(
					zerr.Wrap(domain.ErrUnknownUnit, fmt.Sprintf("unit %s depends on %s", u.ID, dep)),
					"unit", string(dep),
				)
			}
		}
	}
	return index, nil
}

// Expand creates one TaskInfo per (unit, kind) pair in scope of each definition.
// Duplicate names are kept so that Validate can report them.
func Expand(units map[domain.UnitID]domain.Unit, catalog []domain.TaskDefinition) ([]*domain.TaskInfo, error) {
	all := make([]domain.UnitID, 0, len(units))
	for id := range units {
		all = append(all, id)
	}
	slices.Sort(all)

	var infos []*domain.TaskInfo
	for _, def := range catalog {
		scope := def.Units
		if len(scope) == 0 {
			scope = all
		}
		for _, uid := range scope {
			unit, ok := units[uid]
			if !ok {
				return nil, zerr.With(
					zerr.Wrap(domain.ErrUnknownUnit, fmt.Sprintf("task kind %s is restricted to %s", def.Kind, uid)),
					"unit", string(uid),
				)
			}
			infos = append(infos, expandOne(unit, def))
		}
	}
	return infos, nil
}

func expandOne(unit domain.Unit, def domain.TaskDefinition) *domain.TaskInfo {
	info := &domain.TaskInfo{
		Name:       domain.NewTaskName(unit.ID, def.Kind),
		Test:       def.Test,
		Cacheable:  def.Cacheable,
		Shadowing:  def.Shadowing,
		Definition: def.Definition,
	}

	deps := slices.Clone(def.DependsOn)
	if def.DependsOnFunc != nil {
		deps = append(deps, def.DependsOnFunc(unit)...)
	}
	for _, d := range deps {
		if d != info.Name && !slices.Contains(info.Deps, d) {
			info.Deps = append(info.Deps, d)
		}
	}

	for _, o := range def.Outputs {
		info.Outputs = append(info.Outputs, domain.OutputLocation{
			Path:  JoinUnitPath(unit.Path, o.Path),
			Purge: o.Purge,
		})
	}
	for _, in := range def.InputsInUnit {
		info.InputsInUnit = append(info.InputsInUnit, JoinUnitPath(unit.Path, in))
	}
	for _, in := range def.InputsInDeps {
		info.InputsInDeps = append(info.InputsInDeps, cleanSlash(in))
	}
	for _, a := range def.Assets {
		info.Assets = append(info.Assets, JoinUnitPath(unit.Path, a))
	}
	return info
}

// JoinUnitPath resolves a unit-relative path to a slash-separated repo-relative path.
func JoinUnitPath(unitPath, rel string) string {
	return path.Join(cleanSlash(unitPath), cleanSlash(rel))
}

func cleanSlash(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// Validate checks name uniqueness and output overlaps within each unit.
func Validate(infos []*domain.TaskInfo) error {
	counts := make(map[domain.TaskName]int, len(infos))
	for _, info := range infos {
		counts[info.Name]++
	}
	sorted := slices.Clone(infos)
	slices.SortStableFunc(sorted, func(a, b *domain.TaskInfo) int {
		return strings.Compare(a.Name.String(), b.Name.String())
	})
	for _, info := range sorted {
		if n := counts[info.Name]; n > 1 {
			return zerr.With(
				zerr.With(
					zerr.Wrap(domain.ErrTaskNameCollision, fmt.Sprintf("task %s is declared %d times", info.Name, n)),
					"task", info.Name.String(),
				),
				"count", n,
			)
		}
	}

	for i, a := range sorted {
		for _, b := range sorted[i+1:] {
			if a.Name.Unit != b.Name.Unit {
				continue
			}
			if err := checkOutputs(a, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOutputs(a, b *domain.TaskInfo) error {
	for _, oa := range a.Outputs {
		for _, ob := range b.Outputs {
			if !overlaps(oa.Path, ob.Path) {
				continue
			}
			msg := fmt.Sprintf("tasks %s and %s declare outputs %q and %q", a.Name, b.Name, oa.Path, ob.Path)
			err := zerr.With(zerr.Wrap(domain.ErrOutputCollision, msg), "tasks", []string{a.Name.String(), b.Name.String()})
			return zerr.With(err, "paths", []string{oa.Path, ob.Path})
		}
	}
	return nil
}

// BuildGraph creates the task graph with explicit and implicit edges.
func BuildGraph(infos []*domain.TaskInfo, units map[domain.UnitID]domain.Unit) (*dag.Graph[*tracker.Task], error) {
	g := dag.New[*tracker.Task]()
	registry := NewOutputRegistry()

	for _, info := range infos {
		if err := g.AddVertex(info.Name.String(), tracker.NewTask(info)); err != nil {
			return nil, err
		}
		for _, o := range info.Outputs {
			registry.Register(info.Name.Unit, o.Path, info.Name)
		}
	}

	for _, info := range infos {
		from := info.Name.String()

		for _, dep := range info.Deps {
			if !g.Has(dep.String()) {
				msg := fmt.Sprintf("task %s depends on unknown task %s", info.Name, dep)
				return nil, zerr.With(zerr.Wrap(domain.ErrMissingDependency, msg), "dependency", dep.String())
			}
			if err := g.AddEdge(from, dep.String()); err != nil {
				return nil, err
			}
		}

		link := func(unit domain.UnitID, p string) error {
			for _, producer := range registry.Producers(unit, p) {
				if producer == info.Name {
					continue
				}
				if err := g.AddEdge(from, producer.String()); err != nil {
					return err
				}
			}
			return nil
		}

		for _, in := range info.InputsInUnit {
			if err := link(info.Name.Unit, in); err != nil {
				return nil, err
			}
		}
		for _, depUnit := range units[info.Name.Unit].Deps {
			for _, in := range info.InputsInDeps {
				if err := link(depUnit, JoinUnitPath(units[depUnit].Path, in)); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}
