package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrCycleDetected is returned when the task or unit graph contains a cycle.
	ErrCycleDetected = zerr.New("cyclic dependency detected")

	// ErrTaskNameCollision is returned when two catalog entries expand to the same task name.
	ErrTaskNameCollision = zerr.New("task name collision")

	// ErrOutputCollision is returned when two tasks in one unit declare overlapping outputs.
	ErrOutputCollision = zerr.New("output collision")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrMissingOutputs is returned when a successful task did not produce its declared outputs.
	ErrMissingOutputs = zerr.New("task failed to produce outputs")

	// ErrNoTasksToRun is returned when the requested scope matches no task.
	ErrNoTasksToRun = zerr.New("no tasks to run")

	// ErrTaskFailed is returned for a task whose command exited unsuccessfully.
	ErrTaskFailed = zerr.New("task failed")

	// ErrBuildFailed is returned when at least one task in the run failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrTaskCrashed is returned when the repo protocol could not execute a task at all.
	ErrTaskCrashed = zerr.New("task crashed")

	// ErrInvalidBatch is returned when a batch scheduler returns an unusable sub-graph.
	ErrInvalidBatch = zerr.New("invalid batch sub-graph")

	// ErrVertexExists is returned when a vertex id is added twice to a graph.
	ErrVertexExists = zerr.New("vertex already exists")

	// ErrVertexNotFound is returned when an edge references an unknown vertex.
	ErrVertexNotFound = zerr.New("vertex not found")

	// ErrInvalidTaskName is returned when a task name cannot be parsed or is malformed.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrReservedTaskName is returned when a task kind uses a reserved name.
	ErrReservedTaskName = zerr.New("task kind 'all' is reserved")

	// ErrMissingUnitName is returned when a unit file has no name.
	ErrMissingUnitName = zerr.New("missing unit name")

	// ErrInvalidUnitName is returned when a unit name is invalid.
	ErrInvalidUnitName = zerr.New("unit name can only contain alphanumeric characters, hyphens and underscores")

	// ErrDuplicateUnitName is returned when multiple units share the same name.
	ErrDuplicateUnitName = zerr.New("duplicate unit name")

	// ErrUnknownUnit is returned when a unit id is referenced but not part of the workspace.
	ErrUnknownUnit = zerr.New("unknown unit")

	// ErrInvalidPurgePolicy is returned when an output declares an unsupported purge policy.
	ErrInvalidPurgePolicy = zerr.New("invalid purge policy, expected 'always' or 'never'")

	// ErrInvalidConfig is returned when configuration values are out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrConfigNotFound is returned when no workspace file can be found.
	ErrConfigNotFound = zerr.New("could not find kiln.work.yaml")

	// ErrConfigReadFailed is returned when a config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when a config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrUnknownBackend is returned when the configured storage backend is not supported.
	ErrUnknownBackend = zerr.New("unknown storage backend")

	// ErrObjectNotFound is returned by storage clients for absent keys.
	ErrObjectNotFound = zerr.New("object not found")

	// ErrStoreReadFailed is returned when the storage backend cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read from store")

	// ErrStoreWriteFailed is returned when the storage backend cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write to store")

	// ErrCorruptBundle is returned when a stored bundle cannot be decoded.
	ErrCorruptBundle = zerr.New("corrupt output bundle")

	// ErrCorruptVerdict is returned when a stored verdict value cannot be decoded.
	ErrCorruptVerdict = zerr.New("corrupt verdict record")

	// ErrOutputPathOutsideRoot is returned when a path escapes the workspace root.
	ErrOutputPathOutsideRoot = zerr.New("path is outside workspace root")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrFingerprintFailed is returned when a task fingerprint cannot be computed.
	ErrFingerprintFailed = zerr.New("failed to compute fingerprint")

	// ErrInvalidStep is returned when a step record fails validation.
	ErrInvalidStep = zerr.New("invalid step record")

	// ErrStepLogWriteFailed is returned when the step log cannot be written.
	ErrStepLogWriteFailed = zerr.New("failed to write step log")

	// ErrLedgerWriteFailed is returned when the fingerprint ledger cannot be appended.
	ErrLedgerWriteFailed = zerr.New("failed to append fingerprint ledger")

	// ErrLogFileFailed is returned when a task log file cannot be created.
	ErrLogFileFailed = zerr.New("failed to open task log")

	// ErrAssetPublishFailed is returned when an asset cannot be uploaded.
	ErrAssetPublishFailed = zerr.New("failed to publish asset")

	// ErrCommandFailed is returned when a shell command exits with a non-zero code.
	ErrCommandFailed = zerr.New("command failed")

	// ErrEmptyCommand is returned when a task has no command to run.
	ErrEmptyCommand = zerr.New("task has no command")

	// ErrWorkspaceNotLoaded is returned when the repo protocol is used before Initialize.
	ErrWorkspaceNotLoaded = zerr.New("workspace not initialized")

	// ErrInterrupted is returned when the user quits the interactive renderer mid-run.
	ErrInterrupted = zerr.New("run interrupted")

	// ErrWatcherFailed is returned when the file watcher cannot be set up.
	ErrWatcherFailed = zerr.New("failed to watch workspace")

	// ErrCleanFailed is returned when kiln state cannot be removed.
	ErrCleanFailed = zerr.New("failed to clean workspace state")
)

// failures are the sentinels that classify an error as a build-domain failure rather than a crash.
var failures = []error{
	ErrCycleDetected,
	ErrTaskNameCollision,
	ErrOutputCollision,
	ErrMissingDependency,
	ErrMissingOutputs,
	ErrNoTasksToRun,
	ErrTaskFailed,
	ErrBuildFailed,
	ErrInvalidTaskName,
	ErrReservedTaskName,
	ErrMissingUnitName,
	ErrInvalidUnitName,
	ErrDuplicateUnitName,
	ErrUnknownUnit,
	ErrInvalidPurgePolicy,
	ErrInvalidConfig,
	ErrConfigNotFound,
	ErrConfigParseFailed,
}

// IsFailure reports whether err is a domain failure (exit code 2) as opposed to a crash.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	for _, f := range failures {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}
