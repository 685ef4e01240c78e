package shell

// NewExecutorWithEnviron creates an Executor that inherits from environ instead of the process.
func NewExecutorWithEnviron(environ []string) *Executor {
	return &Executor{environ: func() []string { return environ }}
}

// ResolveEnvironment exposes resolveEnvironment for testing.
func ResolveEnvironment(sysEnv []string, taskEnv map[string]string) []string {
	return resolveEnvironment(sysEnv, taskEnv)
}
