package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	taskListWidthRatio = 0.3
	logPaneBorderWidth = 4
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to start.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusDone indicates the task completed successfully.
	StatusDone TaskStatus = "Done"
	// StatusError indicates the task failed.
	StatusError TaskStatus = "Error"
)

// TaskNode is a single row of the task list.
type TaskNode struct {
	Name    string
	Status  TaskStatus
	Cached  bool
	Err     error
	Started time.Time
	Ended   time.Time
	Log     *LogTail
}

// Model is the bubbletea model of the run view.
type Model struct {
	Tasks   []*TaskNode
	TaskMap map[string]*TaskNode
	SpanMap map[string]*TaskNode
	Targets []string

	ActiveTaskName string
	SelectedIdx    int
	ListOffset     int
	ListHeight     int
	LogWidth       int
	LogHeight      int
	FollowMode     bool

	// Interrupted is set when the user quit before the run finished.
	Interrupted bool
	finished    bool
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
//
//nolint:cyclop // message dispatch
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		listWidth := int(float64(msg.Width) * taskListWidthRatio)
		m.LogWidth = msg.Width - listWidth - logPaneBorderWidth
		headerHeight := lipgloss.Height(titleStyle.Render("LOGS"))
		m.LogHeight = msg.Height - headerHeight
		m.ListHeight = msg.Height - lipgloss.Height(titleStyle.Render("TASKS")+"\n\n")
		m.ensureVisible()

	case msgRunFinished:
		m.finished = true

	case MsgInitTasks:
		m.Tasks = make([]*TaskNode, 0, len(msg.Tasks))
		m.TaskMap = make(map[string]*TaskNode, len(msg.Tasks))
		m.SpanMap = make(map[string]*TaskNode)
		m.Targets = msg.Targets
		m.SelectedIdx, m.ListOffset = 0, 0
		m.ActiveTaskName = ""
		for _, name := range msg.Tasks {
			m.addTask(name)
		}

	case MsgTaskStart:
		node, ok := m.TaskMap[msg.Name]
		if !ok {
			node = m.addTask(msg.Name)
		}
		node.Status = StatusRunning
		node.Started = msg.StartTime
		m.SpanMap[msg.SpanID] = node
		if m.FollowMode {
			m.selectTask(msg.Name)
		}

	case MsgTaskLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			_, _ = node.Log.Write(msg.Data)
		}

	case MsgTaskComplete:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			node.Ended = msg.EndTime
			node.Cached = msg.Cached
			node.Err = msg.Err
			if msg.Err != nil {
				node.Status = StatusError
			} else {
				node.Status = StatusDone
			}
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.finished {
			m.Interrupted = true
		}
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.SelectedIdx--
			m.FollowMode = false
			m.ensureVisible()
			m.updateActiveView()
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Tasks)-1 {
			m.SelectedIdx++
			m.FollowMode = false
			m.ensureVisible()
			m.updateActiveView()
		}
	case "esc":
		m.FollowMode = true
		for _, t := range m.Tasks {
			if t.Status == StatusRunning {
				m.selectTask(t.Name)
				break
			}
		}
	}
	return nil
}

func (m *Model) addTask(name string) *TaskNode {
	if m.TaskMap == nil {
		m.TaskMap = make(map[string]*TaskNode)
	}
	if m.SpanMap == nil {
		m.SpanMap = make(map[string]*TaskNode)
	}
	node := &TaskNode{Name: name, Status: StatusPending, Log: NewLogTail(DefaultTailLines)}
	m.Tasks = append(m.Tasks, node)
	m.TaskMap[name] = node
	return node
}

func (m *Model) selectTask(name string) {
	for i, t := range m.Tasks {
		if t.Name == name {
			m.SelectedIdx = i
			break
		}
	}
	m.ensureVisible()
	m.updateActiveView()
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}

func (m *Model) selectedTask() *TaskNode {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.Tasks) {
		return m.Tasks[m.SelectedIdx]
	}
	return nil
}

func (m *Model) updateActiveView() {
	if node := m.selectedTask(); node != nil {
		m.ActiveTaskName = node.Name
	}
}
