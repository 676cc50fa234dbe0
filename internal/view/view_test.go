package view

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/ogle/internal/paint"
	"github.com/asheshgoplani/ogle/internal/process"
	"github.com/asheshgoplani/ogle/internal/stream"
	"github.com/asheshgoplani/ogle/internal/sys"
)

type harness struct {
	t     *testing.T
	clock *sys.Virtual
	view  *View
	rec   paint.Recorder
}

func newHarness(t *testing.T, cmd string) *harness {
	t.Helper()
	clock := sys.NewVirtual(process.NewScript())
	return &harness{
		t:     t,
		clock: clock,
		view:  New(Config{Cmd: cmd, Refresh: 250 * time.Millisecond, Sleep: 5 * time.Second}, clock),
	}
}

func (h *harness) apply(cmds []paint.Command) {
	h.t.Helper()
	assertEraseBeforePrint(h.t, cmds)
	require.NoError(h.t, h.rec.Apply(cmds...))
}

func (h *harness) start() {
	h.apply(h.view.StartRun(h.clock.Now()))
}

func (h *harness) event(kind stream.Kind, line string) {
	h.apply(h.view.Handle(stream.Event{Kind: kind, Line: line, Time: h.clock.Now()}))
}

func (h *harness) done(code int) {
	h.apply(h.view.Handle(stream.Event{Kind: stream.KindDone, Status: process.Exited(code), Time: h.clock.Now()}))
}

func (h *harness) run(code int, lines ...string) {
	h.start()
	for _, l := range lines {
		h.event(stream.KindLineOut, l)
	}
	h.done(code)
}

// history is the screen without the trailing status line.
func (h *harness) history() []string {
	lines := h.rec.Lines()
	if n := len(lines); n > 0 && strings.HasPrefix(lines[n-1], "=>") {
		lines = lines[:n-1]
	}
	return lines
}

func isStatus(c paint.Command) bool {
	w, ok := c.(paint.WriteAll)
	return ok && strings.HasPrefix(string(w.Data), "=>")
}

// assertEraseBeforePrint checks that a status line is always erased before
// anything else is written. The status line is the last thing on screen at
// the start of every batch except the first.
func assertEraseBeforePrint(t *testing.T, cmds []paint.Command) {
	t.Helper()
	shown := false
	for i, c := range cmds {
		switch c.(type) {
		case paint.MoveCursorUp:
			require.Less(t, i+1, len(cmds), "cursor up at end of %s", paint.Describe(cmds))
			require.IsType(t, paint.ClearLine{}, cmds[i+1])
			shown = false
		case paint.WriteAll:
			require.False(t, shown, "write over a status line in %s", paint.Describe(cmds))
			shown = isStatus(c)
		}
	}
}

func TestFirstRunPrintsBannerAndOutput(t *testing.T) {
	h := newHarness(t, "echo fixed")
	h.run(0, "fixed")

	assert.Equal(t, []string{
		"<O> 1970-01-01 00:00:00 start execution",
		"+ echo fixed",
		"fixed",
	}, h.history())
	assert.Equal(t, Sleeping, h.view.State())
	status := h.rec.Lines()[3]
	assert.True(t, strings.HasPrefix(status, "=> "), status)
	assert.Contains(t, status, "exited with success, sleeping for 5s")
}

func TestIdenticalRunPrintsNothing(t *testing.T) {
	h := newHarness(t, "echo fixed")
	h.run(0, "fixed")
	before := h.history()

	h.run(0, "fixed")
	assert.Equal(t, before, h.history())

	// Only status lines were written during the second run.
	h2 := newHarness(t, "echo fixed")
	h2.run(0, "fixed")
	n := len(h2.rec.Commands())
	h2.run(0, "fixed")
	for _, c := range h2.rec.Commands()[n:] {
		if w, ok := c.(paint.WriteAll); ok {
			assert.True(t, isStatus(w), "unexpected permanent write %q", w.Data)
		}
	}
}

func TestChangedRunPrintsMarkerAndCommand(t *testing.T) {
	h := newHarness(t, "flip")
	h.run(0, "a")
	h.run(0, "b")

	hist := h.history()
	require.Len(t, hist, 6)
	assert.Equal(t, []string{"<O> 1970-01-01 00:00:00 start execution", "+ flip", "a"}, hist[:3])
	assert.True(t, strings.HasPrefix(hist[3], "<O> "))
	assert.True(t, strings.HasSuffix(hist[3], " changed"))
	assert.Equal(t, []string{"+ flip", "b"}, hist[4:])
}

func TestDivergenceFlushesCommonPrefix(t *testing.T) {
	h := newHarness(t, "cmd")
	h.run(0, "1", "2", "3")
	n := len(h.history())

	h.start()
	h.event(stream.KindLineOut, "1")
	h.event(stream.KindLineErr, "2")
	assert.Len(t, h.history(), n, "nothing printed while output matches")

	h.event(stream.KindLineOut, "X")
	h.event(stream.KindLineOut, "4")
	h.done(0)

	hist := h.history()[n:]
	require.Len(t, hist, 6)
	assert.True(t, strings.HasSuffix(hist[0], " changed"))
	assert.Equal(t, []string{"+ cmd", "1", "2", "X", "4"}, hist[1:])
}

func TestShorterRunDetectedAtDone(t *testing.T) {
	h := newHarness(t, "cmd")
	h.run(0, "a", "b")
	n := len(h.history())

	h.start()
	h.event(stream.KindLineOut, "a")
	assert.Len(t, h.history(), n)
	h.done(0)

	hist := h.history()[n:]
	require.Len(t, hist, 3)
	assert.True(t, strings.HasSuffix(hist[0], " changed"))
	assert.Equal(t, []string{"+ cmd", "a"}, hist[1:])
}

func TestSilentRunsOnlyCycleSpinner(t *testing.T) {
	h := newHarness(t, "true")
	h.run(0)
	h.start()

	var frames []string
	for i := 0; i < 4; i++ {
		h.event(stream.KindTick, "")
		lines := h.rec.Lines()
		status := lines[len(lines)-1]
		require.True(t, strings.HasPrefix(status, "=> "), status)
		frames = append(frames, status[len(status)-3:])
	}
	h.done(0)

	assert.Len(t, frames, 4)
	assert.NotEqual(t, frames[0], frames[1])
	assert.NotEqual(t, frames[1], frames[2])
	assert.Equal(t, []string{
		"<O> 1970-01-01 00:00:00 start execution",
		"+ true",
	}, h.history())
}

func TestTickBeforeStartRendersNothing(t *testing.T) {
	h := newHarness(t, "x")
	assert.Empty(t, h.view.Handle(stream.Event{Kind: stream.KindTick, Time: h.clock.Now()}))
	assert.Equal(t, AwaitingFirstLine, h.view.State())
}

func TestProcessErrorIsPermanent(t *testing.T) {
	h := newHarness(t, "x")
	h.start()
	h.apply(h.view.Handle(stream.Event{Kind: stream.KindErr, Err: errors.New("read failed"), Time: h.clock.Now()}))

	hist := h.history()
	require.Len(t, hist, 3)
	assert.True(t, strings.HasSuffix(hist[2], " err read failed"), hist[2])
	assert.Equal(t, Running, h.view.State())
}

func TestStatusErasedBeforeEveryPermanentLine(t *testing.T) {
	h := newHarness(t, "x")
	h.start()
	cmds := h.view.Handle(stream.Event{Kind: stream.KindLineOut, Line: "first", Time: h.clock.Now()})
	require.GreaterOrEqual(t, len(cmds), 3)
	assert.Equal(t, paint.MoveCursorUp{N: 1}, cmds[0])
	assert.Equal(t, paint.ClearLine{}, cmds[1])
	assert.Equal(t, paint.Line("first"), cmds[2])
	assert.True(t, isStatus(cmds[len(cmds)-1]))
}

func TestExitStatusChangePrintsPermanentLine(t *testing.T) {
	h := newHarness(t, "check")
	h.run(0, "x")
	n := len(h.history())

	h.run(3, "x")
	hist := h.history()[n:]
	require.Len(t, hist, 1)
	assert.True(t, strings.HasPrefix(hist[0], "<O> "), hist[0])
	assert.True(t, strings.HasSuffix(hist[0], " exited with code 3"), hist[0])

	h.run(3, "x")
	assert.Len(t, h.history(), n+1, "same status again prints nothing")

	h.run(0, "y")
	hist = h.history()[n+1:]
	require.Len(t, hist, 4)
	assert.True(t, strings.HasSuffix(hist[0], " changed"), hist[0])
	assert.Equal(t, []string{"+ check", "y"}, hist[1:3])
	assert.True(t, strings.HasSuffix(hist[3], " exited with success"), hist[3])
}

func TestStopErasesStatus(t *testing.T) {
	h := newHarness(t, "x")
	h.run(3)
	assert.Equal(t, process.Exited(3), h.view.LastStatus())
	h.apply(h.view.Stop())
	assert.Equal(t, h.history(), h.rec.Lines())
	assert.Empty(t, h.view.Stop())
}

func TestRunningBarUsesPreviousDuration(t *testing.T) {
	h := newHarness(t, "slow")
	h.clock.Step = 10 * time.Second
	h.run(0)

	h.start()
	lines := h.rec.Lines()
	status := lines[len(lines)-1]
	assert.Contains(t, status, "running [")
	assert.Contains(t, status, "] [")
}
