// Package app implements the application layer for kiln.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	"go.trai.ch/kiln/internal/adapters/assets"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/adapters/ledger"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/adapters/steplog"
	"go.trai.ch/kiln/internal/adapters/storage"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/adapters/tui"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	loader    ports.ConfigLoader
	repo      ports.RepoProtocol
	scheduler *scheduler.Scheduler
	tracer    ports.Tracer
	opener    *storage.Opener
	watcher   ports.Watcher
	logger    ports.Logger

	stdout     io.Writer
	stderr     io.Writer
	teaOptions []tea.ProgramOption
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	repo ports.RepoProtocol,
	sched *scheduler.Scheduler,
	tracer ports.Tracer,
	opener *storage.Opener,
	watcher ports.Watcher,
	logger ports.Logger,
) *App {
	return &App{
		loader:    loader,
		repo:      repo,
		scheduler: sched,
		tracer:    tracer,
		opener:    opener,
		watcher:   watcher,
		logger:    logger,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// WithTeaOptions configures the TUI program. Used by tests to run headless.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput redirects plan listings and linear renderer output.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// RunOptions configure a build run.
type RunOptions struct {
	Kinds       []domain.TaskKind
	Units       []domain.UnitID
	Concurrency int
	// NoTestCache forces test tasks to run even when the workspace enables test caching.
	NoTestCache bool
	// OutputMode is "auto", "tui" or "linear".
	OutputMode string
	// CI forces linear output.
	CI bool
	// Cwd is where workspace discovery starts. Empty means the process working directory.
	Cwd string
}

// Run plans and executes the requested scope.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	root, err := a.findRoot(opts.Cwd)
	if err != nil {
		return err
	}
	_, err = a.run(ctx, root, opts)
	return err
}

// runResult describes the workspace a run was planned against.
type runResult struct {
	plan     *planner.ExecutionPlan
	settings domain.Settings
}

func (a *App) findRoot(cwd string) (string, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", zerr.Wrap(err, "failed to get working directory")
		}
		cwd = wd
	}
	return a.loader.FindRoot(cwd)
}

// run executes a single build run in root. The result is nil when planning failed.
func (a *App) run(ctx context.Context, root string, opts RunOptions) (*runResult, error) {
	if err := a.repo.Initialize(ctx, root); err != nil {
		return nil, err
	}
	defer func() {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn(fmt.Sprintf("failed to close workspace: %v", err))
		}
	}()

	plan, err := a.plan(ctx, opts)
	if err != nil {
		return nil, err
	}
	settings := a.repo.Settings()
	result := &runResult{plan: plan, settings: settings}

	client, err := a.opener.Open(ctx, root, settings.Cache)
	if err != nil {
		return result, err
	}
	if c, ok := client.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	steps := steplog.NewWriter(filepath.Join(root, domain.DefaultStepLogPath()))
	schedOpts := scheduler.Options{
		Root:              root,
		Concurrency:       opts.Concurrency,
		TestCaching:       settings.Cache.Tests && !opts.NoTestCache,
		TightFingerprints: settings.Cache.TightFingerprints,
		Ignore:            settings.Ignore,
		Repo:              a.repo,
		Store:             cas.NewStore(client),
		Publisher:         assets.NewPublisher(client),
		Ledger:            ledger.New(filepath.Join(root, domain.DefaultLedgerPath())),
		Steps:             steps.Process,
	}
	if schedOpts.Concurrency < 1 {
		schedOpts.Concurrency = settings.Concurrency
	}

	summary, runErr := a.execute(ctx, plan, schedOpts, a.newRenderer(opts))

	if err := steps.Flush(); err != nil {
		a.logger.Warn(fmt.Sprintf("failed to write step log: %v", err))
	}
	if summary != nil {
		a.logger.Info(fmt.Sprintf("Build run %s finished: %s (%d executed, max concurrency %d)",
			summary.BuildRunID, summary.Verdict, summary.Stats.NumExecuted, summary.Stats.MaxUsedConcurrency))
	}
	return result, runErr
}

func (a *App) plan(ctx context.Context, opts RunOptions) (*planner.ExecutionPlan, error) {
	units, err := a.repo.Units(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := a.repo.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return planner.Plan(units, catalog, planner.Request{Kinds: opts.Kinds, Units: opts.Units})
}

// execute runs the scheduler and the renderer side by side.
// Quitting an interactive renderer cancels the run.
func (a *App) execute(
	ctx context.Context,
	plan *planner.ExecutionPlan,
	opts scheduler.Options,
	renderer ports.Renderer,
) (*scheduler.Summary, error) {
	provider := telemetry.NewProvider(renderer)
	otel.SetTracerProvider(provider)
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	if t, ok := a.tracer.(*telemetry.OTelTracer); ok {
		t.WithRenderer(renderer)
		defer t.WithRenderer(nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := renderer.Start(gctx); err != nil {
		return nil, err
	}
	g.Go(renderer.Wait)

	var summary *scheduler.Summary
	g.Go(func() error {
		defer func() { _ = renderer.Stop() }()
		var err error
		summary, err = a.scheduler.Run(gctx, plan, opts)
		return err
	})

	err := g.Wait()
	return summary, err
}

func (a *App) newRenderer(opts RunOptions) ports.Renderer {
	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)
	if opts.CI {
		mode = detector.ModeLinear
	}
	if mode == detector.ModeTUI {
		return tui.NewRenderer(tui.NewModel(a.stdout), a.teaOptions...)
	}
	return linear.NewRenderer(a.stdout, a.stderr)
}
