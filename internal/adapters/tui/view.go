package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/style"
)

// View renders the UI.
func (m *Model) View() string {
	if m.ListHeight == 0 {
		return "Initializing..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.taskList(), m.logPane())
}

func (m *Model) taskList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.progress()) + "\n\n")

	end := min(m.ListOffset+m.ListHeight, len(m.Tasks))
	start := min(m.ListOffset, end)
	for i := start; i < end; i++ {
		s.WriteString(m.renderTaskRow(i, m.Tasks[i]) + "\n")
	}
	return listStyle.Render(s.String())
}

func (m *Model) progress() string {
	done := 0
	for _, t := range m.Tasks {
		if t.Status == StatusDone || t.Status == StatusError {
			done++
		}
	}
	return fmt.Sprintf("TASKS %d/%d", done, len(m.Tasks))
}

func (m *Model) renderTaskRow(index int, task *TaskNode) string {
	look := lookFor(task)
	rowStyle := look.style
	cursor := "  "
	if index == m.SelectedIdx {
		cursor = selectedStyle.Render(style.Arrow + " ")
		if task.Status != StatusDone && task.Status != StatusError {
			rowStyle = selectedStyle
		}
	}
	return cursor + rowStyle.Render(look.icon+" "+task.Name)
}

func (m *Model) logPane() string {
	node, ok := m.TaskMap[m.ActiveTaskName]
	if m.ActiveTaskName == "" || !ok {
		return logStyle.Render(titleStyle.Render("LOGS (Waiting...)"))
	}

	mode := "Manual"
	if m.FollowMode {
		mode = "Following"
	}
	header := titleStyle.Render(fmt.Sprintf("LOGS: %s (%s)", node.Name, mode))

	lines := slices.Clone(node.Log.Tail(m.LogHeight - 1))
	if m.LogWidth > 0 {
		for i, line := range lines {
			if lipgloss.Width(line) > m.LogWidth {
				lines[i] = truncate(line, m.LogWidth)
			}
		}
	}
	body := strings.Join(lines, "\n")
	if node.Err != nil {
		body += "\n" + statusLooks[StatusError].style.Render(style.Cross+" "+node.Err.Error())
	}
	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

func truncate(line string, width int) string {
	runes := []rune(line)
	if len(runes) > width {
		runes = runes[:width]
	}
	return string(runes)
}
