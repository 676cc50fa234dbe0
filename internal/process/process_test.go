package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src Source) []Item {
	t.Helper()
	var items []Item
	timeout := time.After(10 * time.Second)
	for {
		select {
		case it, ok := <-src.Items():
			if !ok {
				return items
			}
			items = append(items, it)
		case <-timeout:
			t.Fatal("timed out waiting for process items")
		}
	}
}

func linesOf(items []Item, kind ItemKind) []string {
	var out []string
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it.Line)
		}
	}
	return out
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestExitStatusString(t *testing.T) {
	assert.Equal(t, "success", Exited(0).String())
	assert.Equal(t, "code 3", Exited(3).String())
	assert.Equal(t, "signal 9", Killed(9).String())
	assert.True(t, Exited(0).Success())
	assert.False(t, Exited(1).Success())
	assert.False(t, Killed(15).Success())
}

func TestCmdString(t *testing.T) {
	assert.Equal(t, "ls -l /tmp", NewCmd("ls", "-l", "/tmp").String())
}

func TestSpawnEmptyCommand(t *testing.T) {
	_, err := ExecSpawner{}.Spawn(context.Background(), Cmd{})
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = NewScript().Spawn(context.Background(), NewCmd(""))
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecSeparatesStreams(t *testing.T) {
	skipOnWindows(t)

	src, err := ExecSpawner{}.Spawn(context.Background(), NewCmd("/bin/sh", "-c", "echo one; echo two >&2; echo three; exit 3"))
	require.NoError(t, err)
	t.Cleanup(src.Stop)

	items := collect(t, src)
	require.NotEmpty(t, items)
	last := items[len(items)-1]
	assert.Equal(t, Done, last.Kind)
	assert.Equal(t, Exited(3), last.Status)

	assert.Equal(t, []string{"one", "three"}, linesOf(items, Stdout))
	assert.Equal(t, []string{"two"}, linesOf(items, Stderr))
}

func TestExecStartFailure(t *testing.T) {
	_, err := ExecSpawner{}.Spawn(context.Background(), NewCmd("/nonexistent/ogle-test-binary"))
	require.Error(t, err)
}

func TestExecStopKillsProcess(t *testing.T) {
	skipOnWindows(t)

	src, err := ExecSpawner{Grace: 200 * time.Millisecond}.Spawn(context.Background(), NewCmd("/bin/sh", "-c", "echo started; sleep 30"))
	require.NoError(t, err)

	first := <-src.Items()
	assert.Equal(t, "started", first.Line)

	stopped := make(chan struct{})
	go func() {
		src.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	src.Stop()
}

func TestExecSignalStatus(t *testing.T) {
	skipOnWindows(t)

	src, err := ExecSpawner{}.Spawn(context.Background(), NewCmd("/bin/sh", "-c", "kill -9 $$"))
	require.NoError(t, err)
	t.Cleanup(src.Stop)

	items := collect(t, src)
	require.NotEmpty(t, items)
	assert.Equal(t, Killed(9), items[len(items)-1].Status)
}

func TestPTYMergesStreams(t *testing.T) {
	skipOnWindows(t)

	src, err := PTYSpawner{}.Spawn(context.Background(), NewCmd("/bin/sh", "-c", "echo out; echo err >&2"))
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(src.Stop)

	items := collect(t, src)
	require.NotEmpty(t, items)
	assert.Equal(t, Done, items[len(items)-1].Kind)
	assert.Equal(t, []string{"out", "err"}, linesOf(items, Stdout))
	assert.Empty(t, linesOf(items, Stderr))
}

func TestScriptReplaysRuns(t *testing.T) {
	s := NewScript(Lines(0, "a"), Lines(1, "b"))
	ctx := context.Background()

	for _, want := range []string{"a", "b", "b"} {
		src, err := s.Spawn(ctx, NewCmd("x"))
		require.NoError(t, err)
		items := collect(t, src)
		assert.Equal(t, []string{want}, linesOf(items, Stdout))
	}
	assert.Len(t, s.Calls(), 3)
}
