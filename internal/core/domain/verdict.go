package domain

// Verdict is the outcome of a task within a build run.
type Verdict int

const (
	// VerdictUnknown means the task has not finished.
	VerdictUnknown Verdict = iota
	// VerdictOK means the task succeeded or was restored from cache.
	VerdictOK
	// VerdictFail means the task, or one of its dependencies, failed.
	VerdictFail
	// VerdictCrash means the task could not be executed at all.
	VerdictCrash
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictFail:
		return "fail"
	case VerdictCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// ExecutionType records how a task reached its verdict.
type ExecutionType int

const (
	// ExecutionNone means the task has not reached a verdict.
	ExecutionNone ExecutionType = iota
	// ExecutionExecuted means the command was run.
	ExecutionExecuted
	// ExecutionCached means outputs were restored from the task store.
	ExecutionCached
	// ExecutionCannotStart means a dependency failed before the task could run.
	ExecutionCannotStart
	// ExecutionShadowed means an equivalent task already ran in this build.
	ExecutionShadowed
)

func (e ExecutionType) String() string {
	switch e {
	case ExecutionExecuted:
		return "executed"
	case ExecutionCached:
		return "cached"
	case ExecutionCannotStart:
		return "cannot-start"
	case ExecutionShadowed:
		return "shadowed"
	default:
		return "none"
	}
}

// Phase is a state of the per-task state machine.
type Phase int

const (
	PhaseUnstarted Phase = iota
	PhaseRunning
	PhaseComputeFingerprint
	PhasePossiblyRestoreOutputs
	PhaseSkip
	PhaseRunIt
	PhaseTerminal
)

var phaseNames = [...]string{
	"UNSTARTED",
	"RUNNING",
	"COMPUTE_FINGERPRINT",
	"POSSIBLY_RESTORE_OUTPUTS",
	"SKIP",
	"RUN_IT",
	"TERMINAL",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "INVALID"
}

// ExecutionRecord is the mutable bookkeeping of a task during a run.
type ExecutionRecord struct {
	Verdict   Verdict
	Type      ExecutionType
	StartSlot int64
	EndSlot   int64
	Phases    []Phase
	// RootCause is set on tasks that failed because another task failed.
	RootCause *TaskName
	Err       error
}

// CachedVerdict is what the task store knows about a fingerprint.
type CachedVerdict int

const (
	CachedAbsent CachedVerdict = iota
	CachedOK
	CachedFail
	// CachedFlaky means both an ok and a fail verdict exist for the fingerprint.
	CachedFlaky
)

func (c CachedVerdict) String() string {
	switch c {
	case CachedOK:
		return "ok"
	case CachedFail:
		return "fail"
	case CachedFlaky:
		return "flaky"
	default:
		return "absent"
	}
}

// ExecStatus is the result reported by the repo protocol for one execution.
type ExecStatus int

const (
	ExecOK ExecStatus = iota
	ExecFail
	ExecCrash
)

func (s ExecStatus) String() string {
	switch s {
	case ExecOK:
		return "ok"
	case ExecFail:
		return "fail"
	default:
		return "crash"
	}
}
