package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/style"
)

// rowLook is the icon and colour of a task row.
type rowLook struct {
	icon  string
	style lipgloss.Style
}

var (
	cachedLook = rowLook{style.Cached, lipgloss.NewStyle().Foreground(style.Ash).Faint(true)}

	statusLooks = map[TaskStatus]rowLook{
		StatusPending: {style.Pending, lipgloss.NewStyle().Foreground(style.Ash)},
		StatusRunning: {style.Running, lipgloss.NewStyle().Foreground(style.Ember).Bold(true)},
		StatusDone:    {style.Check, lipgloss.NewStyle().Foreground(style.Green)},
		StatusError:   {style.Cross, lipgloss.NewStyle().Foreground(style.Red)},
	}

	selectedStyle = lipgloss.NewStyle().Foreground(style.Ember).Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(style.Ember).Foreground(style.Soot)
	listStyle     = lipgloss.NewStyle().PaddingRight(2)
	logStyle      = lipgloss.NewStyle().PaddingLeft(1)
)

// lookFor picks the row look; a cached hit overrides Done but never Error.
func lookFor(task *TaskNode) rowLook {
	if task.Cached && task.Status != StatusError {
		return cachedLook
	}
	if l, ok := statusLooks[task.Status]; ok {
		return l
	}
	return statusLooks[StatusPending]
}
