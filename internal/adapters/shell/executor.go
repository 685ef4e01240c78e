// Package shell provides a PTY-backed executor for running task commands.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct {
	environ func() []string
}

// NewExecutor creates a new Executor inheriting the allow-listed process environment.
func NewExecutor() *Executor {
	return &Executor{environ: os.Environ}
}

// Execute runs cmd in a PTY and waits for it to complete. The PTY merges
// both output streams, so everything is written to stdout.
func (e *Executor) Execute(ctx context.Context, cmd *domain.Command, stdout, _ io.Writer) error {
	if len(cmd.Args) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrEmptyCommand, ""), "dir", cmd.WorkingDir)
	}

	name := cmd.Args[0]
	env := resolveEnvironment(e.environ(), cmd.Env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // user provided command
	c.Args[0] = name
	c.Dir = cmd.WorkingDir
	c.Env = env

	ptmx, err := pty.Start(c)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start pty"), "command", name)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		_, _ = io.Copy(stdout, ptmx)
	}()

	waitErr := c.Wait()
	// Reading the master returns EIO once the child side is gone.
	<-ioDone
	_ = ptmx.Close()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			err := zerr.Wrap(domain.ErrCommandFailed, fmt.Sprintf("%s exited with status %d", name, code))
			return zerr.With(err, "exit_code", code)
		}
		return zerr.With(zerr.Wrap(waitErr, "failed to wait for command"), "command", name)
	}
	return nil
}

// allowListedEnvVars are the system environment variables that are inherited by a task.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment merges the allow-listed system environment with the task environment.
// The task environment wins. The result is sorted by key.
func resolveEnvironment(sysEnv []string, taskEnv map[string]string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, taskEnv)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
