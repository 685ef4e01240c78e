package domain

// Backend names a storage backend implementation.
type Backend string

const (
	BackendFilesystem Backend = "filesystem"
	BackendMemory     Backend = "memory"
	BackendRedis      Backend = "redis"
)

// RedisSettings configures the redis storage backend.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// CacheSettings configures the task store.
type CacheSettings struct {
	Backend Backend
	// Dir is the filesystem store location, relative to the workspace root.
	Dir string
	// Tests enables restoring test tasks from the cache.
	Tests bool
	// TightFingerprints restricts dependency fingerprints to declared dependencies.
	TightFingerprints bool
	Redis             RedisSettings
}

// Settings are the workspace-wide options.
type Settings struct {
	Concurrency int
	Ignore      []string
	Cache       CacheSettings
}

// Workspace is a fully loaded workspace configuration.
type Workspace struct {
	Root     string
	Units    []Unit
	Tasks    []TaskDefinition
	Settings Settings
	// Commands are the commands of workspace-level task kinds.
	Commands map[TaskKind]Command
	// UnitCommands override or add commands for a single unit.
	UnitCommands map[UnitID]map[TaskKind]Command
}

// CommandFor resolves the command of a task. The working directory is the unit path.
func (w *Workspace) CommandFor(name TaskName) (Command, bool) {
	cmd, ok := w.UnitCommands[name.Unit][name.Kind]
	if !ok {
		cmd, ok = w.Commands[name.Kind]
	}
	if !ok {
		return Command{}, false
	}
	for _, u := range w.Units {
		if u.ID == name.Unit {
			cmd.WorkingDir = u.Path
			break
		}
	}
	return cmd, true
}
