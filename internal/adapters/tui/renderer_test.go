package tui_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/tui"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Renderer = (*tui.Renderer)(nil)

func headless(m *tui.Model) *tui.Renderer {
	return tui.NewRenderer(m,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
}

func TestRenderer_Lifecycle(t *testing.T) {
	m := tui.NewModel(io.Discard)
	r := headless(m)
	require.NoError(t, r.Start(context.Background()))

	start := time.Now()
	r.OnPlanEmit([]string{"a:build", "b:build"}, map[string][]string{"b:build": {"a:build"}}, []string{"b:build"})
	r.OnTaskStart("s1", "", "a:build", start)
	r.OnTaskLog("s1", []byte("hello\n"))
	r.OnTaskComplete("s1", start.Add(time.Second), nil, false)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())

	require.Len(t, m.Tasks, 2)
	assert.Equal(t, tui.StatusDone, m.TaskMap["a:build"].Status)
	assert.Equal(t, []string{"hello"}, m.TaskMap["a:build"].Log.Tail(0))
	assert.Equal(t, tui.StatusPending, m.TaskMap["b:build"].Status)
	assert.False(t, m.Interrupted)
}

func TestRenderer_QuitBeforeStopIsInterrupt(t *testing.T) {
	m := tui.NewModel(io.Discard)
	r := tui.NewRenderer(m,
		tea.WithInput(strings.NewReader("q")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
	require.NoError(t, r.Start(context.Background()))

	require.ErrorIs(t, r.Wait(), domain.ErrInterrupted)
}
