// Package detector chooses between the interactive and the linear renderer.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive TUI renderer.
	ModeTUI
	// ModeLinear forces the linear CI renderer.
	ModeLinear
)

// ciVariables are set by common CI providers.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"}

// DetectEnvironment returns the recommended mode for the current process.
func DetectEnvironment() OutputMode {
	return Detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv)
}

// Detect returns ModeLinear when stdout is not a terminal or a CI variable is set.
func Detect(isTTY bool, getenv func(string) string) OutputMode {
	if !isTTY || IsCI(getenv) {
		return ModeLinear
	}
	return ModeTUI
}

// IsCI reports whether any known CI variable is set to a truthy value.
func IsCI(getenv func(string) string) bool {
	for _, name := range ciVariables {
		switch v := getenv(name); v {
		case "", "0", "false":
		default:
			return true
		}
	}
	return false
}

// ResolveMode applies the --output-mode flag to the detected mode.
// Accepted values are "auto", "tui", "linear" and "ci". Unknown values fall back to detection.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "tui":
		return ModeTUI
	case "linear", "ci":
		return ModeLinear
	default:
		return autoDetected
	}
}
