package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
)

// Watch runs the scope once, then again after every debounced batch of file changes.
// It returns when ctx is cancelled or the user quits the interactive renderer.
func (a *App) Watch(ctx context.Context, opts RunOptions) error {
	root, err := a.findRoot(opts.Cwd)
	if err != nil {
		return err
	}
	if err := a.watcher.Start(ctx, root); err != nil {
		return err
	}
	defer func() { _ = a.watcher.Stop() }()

	var filter atomic.Pointer[changeFilter]
	filter.Store(&changeFilter{root: root})

	changes := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// A re-run is already queued.
		}
	})
	defer debouncer.Stop()

	go func() {
		for event := range a.watcher.Events() {
			if filter.Load().relevant(event.Path) {
				debouncer.Add(event.Path)
			}
		}
	}()

	for {
		result, err := a.run(ctx, root, opts)
		switch {
		case errors.Is(err, domain.ErrInterrupted):
			return err
		case ctx.Err() != nil:
			return nil
		case err != nil:
			a.logger.Error(err)
		}
		if result != nil {
			filter.Store(newChangeFilter(root, result))
		}

		a.logger.Info("Watching for changes...")
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			a.logger.Info(fmt.Sprintf("%d file(s) changed, re-running", len(paths)))
		}
	}
}

// changeFilter drops events that cannot affect a fingerprint: kiln state, ignored
// names and the outputs the tasks themselves write.
type changeFilter struct {
	root    string
	ignore  []string
	outputs []string
}

func newChangeFilter(root string, result *runResult) *changeFilter {
	f := &changeFilter{root: root, ignore: result.settings.Ignore}
	for _, task := range result.plan.Tasks {
		f.outputs = append(f.outputs, task.Info.OutputPaths()...)
	}
	return f
}

func (f *changeFilter) relevant(p string) bool {
	if watcher.Skipped(f.root, p) {
		return false
	}
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, segment := range strings.Split(rel, "/") {
		for _, pattern := range f.ignore {
			if ok, _ := path.Match(pattern, segment); ok {
				return false
			}
		}
	}
	for _, out := range f.outputs {
		if rel == out || strings.HasPrefix(rel, out+"/") {
			return false
		}
	}
	return true
}
