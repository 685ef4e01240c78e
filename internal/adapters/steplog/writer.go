package steplog

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Writer buffers the steps of a run and writes them to the step log file.
// The file is replaced as a whole on every Flush.
type Writer struct {
	path string

	mu    sync.Mutex
	steps []domain.Step
}

// NewWriter creates a writer for the step log at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Process records a step. It has the signature of domain.StepProcessor.
func (w *Writer) Process(step domain.Step) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps = append(w.steps, step)
}

// Steps returns the recorded steps.
func (w *Writer) Steps() []domain.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.steps)
}

// Flush writes every recorded step, replacing the previous step log.
func (w *Writer) Flush() error {
	data, err := Encode(w.Steps())
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	tmp, err := os.CreateTemp(dir, ".steps-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStepLogWriteFailed.Error()), "path", w.path)
	}
	return nil
}

// Read loads and validates the step log at path.
func Read(path string) ([]domain.Step, error) {
	//nolint:gosec // path is the workspace step log
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read step log"), "path", path)
	}
	return Decode(data)
}
