// Package style holds the colors and icons shared by the logger and the renderers.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Ember  = lipgloss.Color("#E8590C")
	Ash    = lipgloss.Color("#667085")
	Soot   = lipgloss.Color("#0B0F19")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Cached  = "~"
	Running = "●"
	Pending = "○"
	Arrow   = "→"
)
