// Package tui renders a run as an interactive bubbletea view: a task list
// next to the output tail of the selected task.
package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/output"
)

// NewModel creates a model that follows running tasks.
// The color profile is taken from w, honouring NO_COLOR.
func NewModel(w io.Writer) *Model {
	lipgloss.SetColorProfile(output.New(w).Profile)
	return &Model{
		Tasks:      make([]*TaskNode, 0),
		TaskMap:    make(map[string]*TaskNode),
		SpanMap:    make(map[string]*TaskNode),
		FollowMode: true,
	}
}
