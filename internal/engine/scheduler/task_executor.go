package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// TaskExecutor runs the per-task state machine of one build run.
type TaskExecutor struct {
	s       *Scheduler
	plan    *planner.ExecutionPlan
	tracker *tracker.Tracker
	opts    Options
	emit    domain.StepProcessor
	shadows *shadowRegistry
}

// Drive takes t from RUNNING to TERMINAL. Only the first caller drives the task; later callers
// wait until it is terminal. The returned error is non-nil only for crashes.
func (te *TaskExecutor) Drive(ctx context.Context, t *tracker.Task) error {
	if !te.tracker.Begin(t) {
		select {
		case <-t.Done():
		case <-ctx.Done():
		}
		return nil
	}
	defer te.tracker.Finish(t)

	if t.Verdict() == domain.VerdictFail {
		return nil
	}

	ctx, span := te.s.tracer.Start(ctx, t.Name().String(), ports.WithUnit(string(t.Name().Unit)))
	defer span.End()

	if err := te.drive(ctx, t, span); err != nil {
		err = zerr.With(err, "task", t.Name().String())
		te.tracker.RecordVerdict(t, domain.VerdictCrash, t.Record().Type, err)
		span.RecordError(err)
		return err
	}
	if rec := t.Record(); rec.Err != nil {
		span.RecordError(rec.Err)
	}
	return nil
}

func (te *TaskExecutor) drive(ctx context.Context, t *tracker.Task, span ports.Span) error {
	info := t.Info

	t.EnterPhase(domain.PhaseComputeFingerprint)
	fp, err := te.fingerprint(ctx, t)
	if err != nil {
		return err
	}
	t.SetFingerprint(fp)

	t.EnterPhase(domain.PhasePossiblyRestoreOutputs)
	lookup, err := te.opts.Store.Lookup(ctx, info.Name, fp)
	if err != nil {
		return err
	}
	if err := te.opts.Store.Purge(te.opts.Root, info.Outputs); err != nil {
		return err
	}

	if te.reusable(info, lookup.Verdict) {
		files, err := te.opts.Store.Restore(ctx, te.opts.Root, lookup.Blob)
		if err != nil {
			return err
		}
		if lookup.Verdict == domain.CachedFlaky {
			te.s.logger.Warn(fmt.Sprintf("%s: fingerprint %s has both ok and fail verdicts, using the ok outputs", info.Name, fp))
		}
		if len(info.Outputs) > 0 {
			te.emit(domain.TaskStoreGet{TaskName: info.Name, BlobID: lookup.Blob, Fingerprint: fp, Files: files})
		}
		te.tracker.RecordVerdict(t, domain.VerdictOK, domain.ExecutionCached, nil)
		t.EnterPhase(domain.PhaseSkip)
		span.SetAttribute(ports.AttrCached, true)
		return nil
	}

	t.EnterPhase(domain.PhaseRunIt)
	return te.runIt(ctx, t, fp, span)
}

// reusable reports whether a cached verdict may replace running the task.
func (te *TaskExecutor) reusable(info *domain.TaskInfo, cached domain.CachedVerdict) bool {
	if !info.Cacheable {
		return false
	}
	if info.Test && !te.opts.TestCaching {
		return false
	}
	return cached == domain.CachedOK || cached == domain.CachedFlaky
}

func (te *TaskExecutor) runIt(ctx context.Context, t *tracker.Task, fp domain.Fingerprint, span ports.Span) error {
	info := t.Info

	var shadowKey domain.Fingerprint
	if info.Shadowing && len(info.Outputs) == 0 {
		key, err := te.shadowKey(ctx, t)
		if err != nil {
			return err
		}
		shadowKey = key
		if verdict, ok := te.shadows.lookup(info.Name.Kind, shadowKey); ok {
			te.tracker.RecordVerdict(t, verdict, domain.ExecutionShadowed, te.failure(info, verdict))
			span.SetAttribute(ports.AttrCached, true)
			return nil
		}
	}

	logPath := filepath.Join(te.opts.Root, domain.TaskLogPath(info.Name))
	status, err := te.opts.Repo.Execute(ctx, info.Name, logPath, te.opts.BuildRunID)
	streamLog(logPath, span)
	if err != nil {
		return zerr.Wrap(err, domain.ErrTaskCrashed.Error())
	}
	if status == domain.ExecCrash {
		te.tracker.RecordVerdict(t, domain.VerdictCrash, domain.ExecutionExecuted, nil)
		return zerr.Wrap(domain.ErrTaskCrashed, info.Name.String())
	}

	verdict := domain.VerdictOK
	failErr := error(nil)
	if status == domain.ExecFail {
		verdict = domain.VerdictFail
		failErr = te.failure(info, verdict)
	} else {
		missing, err := te.s.verifier.MissingOutputs(te.opts.Root, info.OutputPaths())
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			verdict = domain.VerdictFail
			msg := fmt.Sprintf("task %s failed to produce outputs: %s", info.Name, strings.Join(missing, ", "))
			failErr = zerr.With(zerr.Wrap(domain.ErrMissingOutputs, msg), "missing", missing)
		}
	}

	if info.Cacheable {
		stored, err := te.opts.Store.Put(ctx, te.opts.Root, info.Name, fp, verdict, info.OutputPaths())
		if err != nil {
			return err
		}
		if len(info.Outputs) > 0 {
			te.emit(domain.TaskStorePut{TaskName: info.Name, BlobID: stored.Blob, Fingerprint: fp, Files: stored.Files})
		}
	}
	if verdict == domain.VerdictOK && len(info.Assets) > 0 && te.opts.Publisher != nil {
		published, err := te.opts.Publisher.Publish(ctx, te.opts.Root, info.Name, fp, info.Assets)
		if err != nil {
			return err
		}
		for _, step := range published {
			te.emit(step)
		}
	}
	if shadowKey != "" {
		te.shadows.record(info.Name.Kind, shadowKey, verdict)
	}

	te.tracker.RecordVerdict(t, verdict, domain.ExecutionExecuted, failErr)
	return nil
}

func (te *TaskExecutor) failure(info *domain.TaskInfo, verdict domain.Verdict) error {
	if verdict != domain.VerdictFail {
		return nil
	}
	return zerr.With(zerr.Wrap(domain.ErrTaskFailed, info.Name.String()), "task", info.Name.String())
}

// streamLog copies the task log into its span. A missing log is not an error.
func streamLog(path string, span ports.Span) {
	f, err := os.Open(path) //nolint:gosec // Path derived from the task name
	if err != nil {
		return
	}
	defer f.Close() //nolint:errcheck // Read-only file
	_, _ = io.Copy(span, f)
}
