package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

// Plan prints the tasks selected by opts in execution order without running them.
func (a *App) Plan(ctx context.Context, opts RunOptions) error {
	root, err := a.findRoot(opts.Cwd)
	if err != nil {
		return err
	}
	if err := a.repo.Initialize(ctx, root); err != nil {
		return err
	}
	defer func() { _ = a.repo.Close() }()

	plan, err := a.plan(ctx, opts)
	if err != nil {
		return err
	}
	order, err := plan.Order()
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, name := range order {
		marker := " "
		if slices.Contains(plan.Targets, name) {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s", marker, name)
		if deps := plan.Dependencies(name); len(deps) > 0 {
			fmt.Fprintf(&b, " <- %s", joinNames(deps))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d task(s), %d target(s)\n", len(order), len(plan.Targets))

	_, err = io.WriteString(a.stdout, b.String())
	return err
}

func joinNames(names []domain.TaskName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, ", ")
}
