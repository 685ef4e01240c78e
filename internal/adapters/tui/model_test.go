package tui_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/tui"
	"go.trai.ch/zerr"
)

func update(t *testing.T, m *tui.Model, msg tea.Msg) (*tui.Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(*tui.Model)
	require.True(t, ok)
	return model, cmd
}

func planned(t *testing.T, names ...string) *tui.Model {
	t.Helper()
	m := tui.NewModel(nil)
	m, _ = update(t, m, tui.MsgInitTasks{Tasks: names, Targets: names[len(names)-1:]})
	return m
}

func TestModel_InitTasks(t *testing.T) {
	m := planned(t, "lib:build", "app:build")

	require.Len(t, m.Tasks, 2)
	assert.Equal(t, "lib:build", m.Tasks[0].Name)
	assert.Equal(t, tui.StatusPending, m.Tasks[1].Status)
	assert.Equal(t, []string{"app:build"}, m.Targets)
	assert.Same(t, m.Tasks[1], m.TaskMap["app:build"])
}

func TestModel_TaskLifecycle(t *testing.T) {
	m := planned(t, "lib:build", "app:build", "app:test")
	now := time.Now()

	m, _ = update(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "lib:build", StartTime: now})
	assert.Equal(t, tui.StatusRunning, m.TaskMap["lib:build"].Status)
	assert.Equal(t, "lib:build", m.ActiveTaskName)

	m, _ = update(t, m, tui.MsgTaskLog{SpanID: "s1", Data: []byte("compiling\n")})
	assert.Equal(t, []string{"compiling"}, m.TaskMap["lib:build"].Log.Tail(0))

	m, _ = update(t, m, tui.MsgTaskComplete{SpanID: "s1", EndTime: now, Cached: true})
	assert.Equal(t, tui.StatusDone, m.TaskMap["lib:build"].Status)
	assert.True(t, m.TaskMap["lib:build"].Cached)

	m, _ = update(t, m, tui.MsgTaskStart{SpanID: "s2", Name: "app:build", StartTime: now})
	assert.Equal(t, 1, m.SelectedIdx)

	failure := zerr.New("exit status 1")
	m, _ = update(t, m, tui.MsgTaskComplete{SpanID: "s2", EndTime: now, Err: failure})
	assert.Equal(t, tui.StatusError, m.TaskMap["app:build"].Status)
	assert.Equal(t, failure, m.TaskMap["app:build"].Err)
}

func TestModel_UnplannedTaskIsAppended(t *testing.T) {
	m := planned(t, "a:build")

	m, _ = update(t, m, tui.MsgTaskStart{SpanID: "s9", Name: "b:build"})
	require.Len(t, m.Tasks, 2)
	assert.Equal(t, tui.StatusRunning, m.TaskMap["b:build"].Status)
}

func TestModel_UnknownSpanIsIgnored(t *testing.T) {
	m := planned(t, "a:build")

	m, _ = update(t, m, tui.MsgTaskLog{SpanID: "nope", Data: []byte("x\n")})
	m, _ = update(t, m, tui.MsgTaskComplete{SpanID: "nope"})
	assert.Equal(t, tui.StatusPending, m.Tasks[0].Status)
	assert.Zero(t, m.Tasks[0].Log.Len())
}

func TestModel_Navigation(t *testing.T) {
	m := planned(t, "a:build", "b:build", "c:build")
	m, _ = update(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "c:build"})
	assert.Equal(t, 2, m.SelectedIdx)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.SelectedIdx)
	assert.False(t, m.FollowMode)
	assert.Equal(t, "b:build", m.ActiveTaskName)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 0, m.SelectedIdx)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.SelectedIdx)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.FollowMode)
	assert.Equal(t, 2, m.SelectedIdx)
	assert.Equal(t, "c:build", m.ActiveTaskName)
}

func TestModel_ManualModeIgnoresNewStarts(t *testing.T) {
	m := planned(t, "a:build", "b:build")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.False(t, m.FollowMode)

	m, _ = update(t, m, tui.MsgTaskStart{SpanID: "s1", Name: "a:build"})
	assert.Equal(t, "b:build", m.ActiveTaskName)
}

func TestModel_SlidingWindow(t *testing.T) {
	names := make([]string, 10)
	for i := range names {
		names[i] = "u" + string(rune('0'+i)) + ":build"
	}
	m := planned(t, names...)
	m.ListHeight = 5

	for range 4 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 4, m.SelectedIdx)
	assert.Equal(t, 0, m.ListOffset)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 5, m.SelectedIdx)
	assert.Equal(t, 1, m.ListOffset)

	for range 10 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 9, m.SelectedIdx)
	assert.Equal(t, 5, m.ListOffset)

	for range 5 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	}
	assert.Equal(t, 4, m.SelectedIdx)
	assert.Equal(t, 4, m.ListOffset)
}

func TestModel_WindowSize(t *testing.T) {
	m := planned(t, "a:build")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Equal(t, 100-30-4, m.LogWidth)
	assert.Positive(t, m.ListHeight)
	assert.Less(t, m.ListHeight, 40)
	assert.Positive(t, m.LogHeight)
}

func TestModel_Quit(t *testing.T) {
	t.Run("before the run finished", func(t *testing.T) {
		m := planned(t, "a:build")
		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.True(t, m.Interrupted)
	})

	t.Run("after the run finished", func(t *testing.T) {
		m := planned(t, "a:build")
		m, _ = update(t, m, tui.RunFinished)
		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		require.NotNil(t, cmd)
		assert.False(t, m.Interrupted)
	})
}
