package scheduler

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// fingerprint computes the fingerprint of t and records it in the ledger.
func (te *TaskExecutor) fingerprint(ctx context.Context, t *tracker.Task) (domain.Fingerprint, error) {
	deps, err := te.depFingerprints(t)
	if err != nil {
		return "", err
	}
	in := ports.FingerprintInput{
		Declaration: declaration(t.Info, string(t.Name().Unit)),
		Deps:        deps,
		Inputs:      te.inputs(t.Info, false),
		Ignore:      te.opts.Ignore,
	}
	fp, err := te.s.fingerprinter.Fingerprint(ctx, te.opts.Root, in)
	if err != nil {
		return "", zerr.With(err, "task", t.Name().String())
	}

	if te.opts.Ledger != nil {
		paths := make([]string, len(in.Inputs))
		for i, input := range in.Inputs {
			paths[i] = input.Path
		}
		entry := ports.LedgerEntry{
			BuildRunID:  te.opts.BuildRunID,
			TaskName:    t.Name(),
			Fingerprint: fp,
			Deps:        deps,
			Inputs:      paths,
		}
		if err := te.opts.Ledger.Record(entry); err != nil {
			te.s.logger.Warn(fmt.Sprintf("%s: %v", t.Name(), err))
		}
	}
	return fp, nil
}

// shadowKey fingerprints t as if it belonged to no unit, so equivalent tasks of different
// units share a key.
func (te *TaskExecutor) shadowKey(ctx context.Context, t *tracker.Task) (domain.Fingerprint, error) {
	deps, err := te.depFingerprints(t)
	if err != nil {
		return "", err
	}
	return te.s.fingerprinter.Fingerprint(ctx, te.opts.Root, ports.FingerprintInput{
		Declaration: declaration(t.Info, ""),
		Deps:        deps,
		Inputs:      te.inputs(t.Info, true),
		Ignore:      te.opts.Ignore,
	})
}

// depFingerprints returns the fingerprints of the dependencies of t, sorted by task name.
// Graph neighbours are used unless tight fingerprints restrict them to declared dependencies.
func (te *TaskExecutor) depFingerprints(t *tracker.Task) ([]domain.Fingerprint, error) {
	deps := te.plan.Dependencies(t.Name())
	if te.opts.TightFingerprints {
		deps = slices.Clone(t.Info.Deps)
		slices.SortFunc(deps, func(a, b domain.TaskName) int {
			return strings.Compare(a.String(), b.String())
		})
	}

	fps := make([]domain.Fingerprint, 0, len(deps))
	for _, name := range deps {
		dep, ok := te.plan.Task(name)
		if !ok {
			continue
		}
		fp, ok := dep.Fingerprint()
		if !ok {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrFingerprintFailed, fmt.Sprintf("dependency %s has no fingerprint", name)),
				"dependency", name.String(),
			)
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

// inputs lists the input paths of info. With unitRelative, labels are relative to the owning
// unit instead of the workspace.
func (te *TaskExecutor) inputs(info *domain.TaskInfo, unitRelative bool) []ports.InputPath {
	unit := te.plan.Units[info.Name.Unit]
	var inputs []ports.InputPath

	for _, p := range info.InputsInUnit {
		label := p
		if unitRelative {
			label = relativeTo(unit.Path, p)
		}
		inputs = append(inputs, ports.InputPath{Label: label, Path: p})
	}
	for _, depID := range unit.Deps {
		depUnit := te.plan.Units[depID]
		for _, in := range info.InputsInDeps {
			p := planner.JoinUnitPath(depUnit.Path, in)
			label := string(depID) + ":" + in
			if unitRelative {
				label = "^" + in
			}
			inputs = append(inputs, ports.InputPath{Label: label, Path: p})
		}
	}
	return inputs
}

// declaration renders the parts of a task definition that influence its result. An empty unit
// renders dependencies relative to the task's own unit.
func declaration(info *domain.TaskInfo, unit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit=%s\x00kind=%s\x00", unit, info.Name.Kind)
	fmt.Fprintf(&b, "test=%t\x00cacheable=%t\x00shadowing=%t\x00", info.Test, info.Cacheable, info.Shadowing)
	b.WriteString(info.Definition)
	b.WriteByte(0)
	for _, o := range info.Outputs {
		fmt.Fprintf(&b, "out=%s:%s\x00", o.Path, o.Purge)
	}

	deps := make([]string, len(info.Deps))
	for i, d := range info.Deps {
		switch {
		case unit != "":
			deps[i] = d.String()
		case d.Unit == info.Name.Unit:
			deps[i] = string(d.Kind)
		default:
			deps[i] = "^" + string(d.Kind)
		}
	}
	slices.Sort(deps)
	for _, d := range deps {
		fmt.Fprintf(&b, "dep=%s\x00", d)
	}
	for _, in := range info.InputsInDeps {
		fmt.Fprintf(&b, "indeps=%s\x00", in)
	}
	for _, a := range info.Assets {
		fmt.Fprintf(&b, "asset=%s\x00", a)
	}
	return b.String()
}

func relativeTo(base, p string) string {
	base = path.Clean(base)
	if base == "." {
		return p
	}
	if rel, ok := strings.CutPrefix(p, base+"/"); ok {
		return rel
	}
	if p == base {
		return "."
	}
	return p
}
