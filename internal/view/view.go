// Package view turns the merged event stream of one or more runs into paint
// commands: permanent history when the output changed, and an ephemeral
// status line otherwise.
package view

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/asheshgoplani/ogle/internal/differ"
	"github.com/asheshgoplani/ogle/internal/logging"
	"github.com/asheshgoplani/ogle/internal/paint"
	"github.com/asheshgoplani/ogle/internal/process"
	"github.com/asheshgoplani/ogle/internal/progbar"
	"github.com/asheshgoplani/ogle/internal/stream"
)

var viewLog = logging.ForComponent(logging.CompView)

// State is where the view is in the run cycle.
type State int

const (
	AwaitingFirstLine State = iota
	Running
	Sleeping
)

func (s State) String() string {
	switch s {
	case AwaitingFirstLine:
		return "awaiting_first_line"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Widther reports the terminal width.
type Widther interface {
	Width() int
}

// Config holds the parameters of a View.
type Config struct {
	// Cmd is the command line as displayed.
	Cmd string
	// Refresh is the tick interval; it sets the resolution of the bar.
	Refresh time.Duration
	// Sleep is the pause between runs, shown as a countdown.
	Sleep time.Duration
}

// View is the rendering state machine. It is not safe for concurrent use;
// every method returns the paint commands to execute, in order.
type View struct {
	cfg    Config
	term   Widther
	differ *differ.Differ

	state    State
	spinner  progbar.Spinner
	start    time.Time
	prev     time.Duration
	deadline time.Time
	last     process.ExitStatus
	runs     int

	printedStatus bool
	bannerShown   bool

	out []paint.Command
}

// New returns a View in the AwaitingFirstLine state.
func New(cfg Config, term Widther) *View {
	return &View{
		cfg:    cfg,
		term:   term,
		differ: differ.New(),
	}
}

// State returns the current state.
func (v *View) State() State { return v.state }

// LastStatus returns the exit status of the last finished run.
func (v *View) LastStatus() process.ExitStatus { return v.last }

// StartRun begins a new run at now.
func (v *View) StartRun(now time.Time) []paint.Command {
	if !v.bannerShown {
		v.println(progbar.Permanent(now, "start execution"))
		v.println(progbar.Command(v.cfg.Cmd))
		v.bannerShown = true
	}
	v.differ.Reset()
	v.state = Running
	v.start = now
	v.runs++
	viewLog.Debug("run_started", slog.Int("run", v.runs))
	v.statusRunning(now)
	return v.flush()
}

// Handle renders one event of the current run.
func (v *View) Handle(ev stream.Event) []paint.Command {
	switch ev.Kind {
	case stream.KindLineOut, stream.KindLineErr:
		logging.Aggregate(logging.CompView, "line")
		v.pushLine(ev.Time, ev.Line)
		v.statusRunning(ev.Time)
	case stream.KindTick:
		v.refresh(ev.Time)
	case stream.KindErr:
		v.println(progbar.Permanent(ev.Time, fmt.Sprintf("err %v", ev.Err)))
		v.refresh(ev.Time)
	case stream.KindDone:
		v.finishRun(ev.Time, ev.Status)
	}
	return v.flush()
}

// Stop erases the status line, leaving only the permanent history.
func (v *View) Stop() []paint.Command {
	v.eraseStatus()
	return v.flush()
}

func (v *View) pushLine(now time.Time, line string) {
	wasChanged := v.differ.Changed()
	v.differ.Push(line)
	switch {
	case wasChanged:
		v.printLines(v.differ.Drain())
	case v.differ.Changed():
		v.printChanged(now)
	}
}

func (v *View) finishRun(now time.Time, sts process.ExitStatus) {
	if v.differ.Finish() {
		v.printChanged(now)
	}
	// An exit status that moved is history even when the output did not.
	if v.runs > 1 && sts != v.last {
		v.println(progbar.Permanent(now, "exited with "+sts.String()))
	}
	v.prev = now.Sub(v.start)
	v.last = sts
	v.state = Sleeping
	v.start = now
	v.deadline = now.Add(v.cfg.Sleep)
	viewLog.Debug("run_finished",
		slog.Int("run", v.runs),
		slog.String("status", sts.String()),
		slog.Duration("duration", v.prev),
		slog.Bool("changed", v.differ.Changed()))
	v.statusSleeping(now)
}

// printChanged announces a divergence and prints the run so far. The first
// run is announced by the banner instead.
func (v *View) printChanged(now time.Time) {
	if v.runs > 1 {
		v.println(progbar.Permanent(now, "changed"))
		v.println(progbar.Command(v.cfg.Cmd))
	}
	v.printLines(v.differ.Drain())
}

func (v *View) printLines(lines []string) {
	for _, l := range lines {
		v.println(l)
	}
}

func (v *View) refresh(now time.Time) {
	switch v.state {
	case Running:
		v.statusRunning(now)
	case Sleeping:
		v.statusSleeping(now)
	}
}

func (v *View) statusRunning(now time.Time) {
	width := v.term.Width()
	msg := progbar.Running(width-progbar.StatusOverhead(), now, v.start, v.prev, v.cfg.Refresh, v.spinner.Next())
	v.status(progbar.Status(now, msg, width))
}

func (v *View) statusSleeping(now time.Time) {
	msg := progbar.Sleeping(now, v.deadline, v.last.String(), v.spinner.Next())
	v.status(progbar.Status(now, msg, v.term.Width()))
}

func (v *View) status(line string) {
	v.eraseStatus()
	v.out = append(v.out, paint.Line(line))
	v.printedStatus = true
}

// println writes a permanent line. A status line on screen is erased first
// so it never ends up in the history.
func (v *View) println(line string) {
	v.eraseStatus()
	v.out = append(v.out, paint.Line(line))
}

func (v *View) eraseStatus() {
	if v.printedStatus {
		v.out = append(v.out, paint.MoveCursorUp{N: 1}, paint.ClearLine{})
		v.printedStatus = false
	}
}

func (v *View) flush() []paint.Command {
	out := v.out
	v.out = nil
	return out
}
