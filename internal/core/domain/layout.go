package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal workspace directory.
	KilnDirName = ".kiln"

	// StoreDirName is the name of the filesystem object store directory.
	StoreDirName = "store"

	// LogsDirName is the name of the task log directory.
	LogsDirName = "logs"

	// StepLogFileName is the name of the per-run step log.
	StepLogFileName = "steps.json"

	// LedgerFileName is the name of the fingerprint ledger.
	LedgerFileName = "fingerprints.jsonl"

	// UnitFileName is the name of the per-unit configuration file.
	UnitFileName = "kiln.yaml"

	// WorkFileName is the name of the workspace configuration file.
	WorkFileName = "kiln.work.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultKilnPath returns the default root directory for kiln metadata.
func DefaultKilnPath() string {
	return KilnDirName
}

// DefaultStorePath returns the default path for the filesystem object store.
// It joins .kiln and store.
func DefaultStorePath() string {
	return filepath.Join(KilnDirName, StoreDirName)
}

// DefaultLogsPath returns the default path for task logs.
func DefaultLogsPath() string {
	return filepath.Join(KilnDirName, LogsDirName)
}

// DefaultStepLogPath returns the default path of the step log.
func DefaultStepLogPath() string {
	return filepath.Join(KilnDirName, StepLogFileName)
}

// DefaultLedgerPath returns the default path of the fingerprint ledger.
func DefaultLedgerPath() string {
	return filepath.Join(KilnDirName, LedgerFileName)
}

// TaskLogPath returns the log path of a task relative to the workspace root.
func TaskLogPath(name TaskName) string {
	return filepath.Join(KilnDirName, LogsDirName, string(name.Unit), string(name.Kind)+".log")
}
