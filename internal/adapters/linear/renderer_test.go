package linear_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Renderer = (*linear.Renderer)(nil)

func TestRenderer_Lifecycle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)
	require.NoError(t, r.Start(context.Background()))

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.OnPlanEmit([]string{"lib:build", "app:build", "app:test"},
		map[string][]string{"app:build": {"lib:build"}, "app:test": {"app:build"}},
		[]string{"app:build", "app:test"})

	r.OnTaskStart("s1", "", "lib:build", start)
	r.OnTaskComplete("s1", start.Add(2*time.Millisecond), nil, true)

	r.OnTaskStart("s2", "", "app:build", start)
	r.OnTaskLog("s2", []byte("compiling\nlink"))
	r.OnTaskLog("s2", []byte("ing\n"))
	r.OnTaskComplete("s2", start.Add(1500*time.Millisecond), nil, false)

	r.OnTaskStart("s3", "", "app:test", start)
	r.OnTaskLog("s3", []byte("FAIL: TestApp"))
	r.OnTaskComplete("s3", start.Add(250*time.Millisecond), zerr.New("exit status 1"), false)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())

	g := goldie.New(t)
	g.Assert(t, "lifecycle_stdout", stdout.Bytes())
	g.Assert(t, "lifecycle_stderr", stderr.Bytes())
}

func TestRenderer_PartialLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	start := time.Now()
	r.OnTaskStart("s1", "", "a:build", start)

	r.OnTaskLog("s1", []byte("partial"))
	assert.NotContains(t, stdout.String(), "partial")

	r.OnTaskLog("s1", []byte(" line\n"))
	assert.Contains(t, stdout.String(), "partial line")

	r.OnTaskLog("s1", []byte("unflushed"))
	r.OnTaskComplete("s1", start.Add(time.Millisecond), nil, false)
	assert.Contains(t, stdout.String(), "unflushed")
}

func TestRenderer_InterleavedTasks(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	start := time.Now()
	r.OnTaskStart("s1", "", "a:build", start)
	r.OnTaskStart("s2", "", "b:build", start)
	r.OnTaskLog("s1", []byte("a1\n"))
	r.OnTaskLog("s2", []byte("b1\n"))
	r.OnTaskLog("s1", []byte("a2\n"))
	r.OnTaskLog("s2", []byte("b2\n"))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{"[a:build] a1", "[b:build] b1", "[a:build] a2", "[b:build] b2"}, lines)
}

func TestRenderer_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	start := time.Now()
	r.OnTaskStart("s1", "", "a:build", start)
	r.OnTaskLog("s1", []byte("out\n"))
	r.OnTaskComplete("s1", start.Add(time.Millisecond), nil, false)

	assert.NotContains(t, stderr.String(), "\x1b[")
	assert.NotContains(t, stdout.String(), "\x1b[")
}

func TestRenderer_PrefixColorIsStable(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	render := func(name string) string {
		var stdout, stderr bytes.Buffer
		r := linear.NewRenderer(&stdout, &stderr)
		r.OnTaskStart("s", "", name, time.Now())
		return stderr.String()
	}

	first := render("a:build")
	assert.Equal(t, first, render("a:build"))
	assert.Contains(t, first, "\x1b[")

	seen := map[string]struct{}{}
	for _, name := range []string{"a:build", "b:build", "c:test", "d:lint", "e:deploy", "f:build"} {
		out := render(name)
		seen[strings.SplitN(out, "[", 3)[1]] = struct{}{}
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}

func TestRenderer_UnknownSpan(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskLog("missing", []byte("ignored\n"))
	r.OnTaskComplete("missing", time.Now(), nil, false)

	assert.Zero(t, stdout.Len())
	assert.Zero(t, stderr.Len())
}

func TestRenderer_EmptyLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("s1", "", "a:build", time.Now())
	r.OnTaskLog("s1", []byte("\n"))
	r.OnTaskLog("s1", []byte("\r\n"))

	assert.Zero(t, stdout.Len())
}

func TestRenderer_StopFlushesBuffers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	start := time.Now()
	r.OnTaskStart("s1", "", "a:build", start)
	r.OnTaskStart("s2", "", "b:build", start)
	r.OnTaskLog("s1", []byte("partial1"))
	r.OnTaskLog("s2", []byte("partial2"))

	require.NoError(t, r.Stop())
	assert.Contains(t, stdout.String(), "partial1")
	assert.Contains(t, stdout.String(), "partial2")
	assert.NotContains(t, stderr.String(), "executed")
}
