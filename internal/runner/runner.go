// Package runner repeats the watched command, feeding every run through the
// stream and the view, and decides when to stop.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asheshgoplani/ogle/internal/config"
	"github.com/asheshgoplani/ogle/internal/input"
	"github.com/asheshgoplani/ogle/internal/logging"
	"github.com/asheshgoplani/ogle/internal/paint"
	"github.com/asheshgoplani/ogle/internal/process"
	"github.com/asheshgoplani/ogle/internal/stream"
	"github.com/asheshgoplani/ogle/internal/sys"
	"github.com/asheshgoplani/ogle/internal/view"
)

var runLog = logging.ForComponent(logging.CompRunner)

// Exit codes returned by Run.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitKilled = 130
)

// Options is what to run and how often.
type Options struct {
	Cmd          process.Cmd
	Period       time.Duration
	Refresh      time.Duration
	UntilSuccess bool
	UntilFailure bool
}

// Deps are the collaborators of Run. API and Sink are required.
type Deps struct {
	API  sys.API
	Sink paint.Sink
	// NewTicker creates the refresh ticker; defaults to stream.NewTicker.
	NewTicker func(time.Duration) stream.TickSource
	// Actions carries user keys; nil when there is no interactive terminal.
	Actions <-chan input.Action
	// Wake cuts the sleep between runs short; nil disables it.
	Wake <-chan string
}

// ErrMissingDeps is returned when Deps lacks the API or the Sink.
var ErrMissingDeps = errors.New("runner: API and Sink are required")

type runner struct {
	opts Options
	deps Deps
	view *view.View
	ctl  *control
	runs int
}

// Run repeats opts.Cmd until a stop condition is met, the user quits or
// kills it, or ctx is cancelled. It returns the process exit code ogle
// should use. The error is non-nil only for failures that end the loop
// abnormally: the command could not be started or the terminal failed.
func Run(ctx context.Context, opts Options, deps Deps) (int, error) {
	if deps.API == nil || deps.Sink == nil {
		return ExitError, ErrMissingDeps
	}
	if deps.NewTicker == nil {
		deps.NewTicker = func(d time.Duration) stream.TickSource { return stream.NewTicker(d) }
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 250 * time.Millisecond
	}
	if opts.UntilSuccess && opts.UntilFailure {
		return ExitError, config.ErrConflictingStop
	}

	r := &runner{
		opts: opts,
		deps: deps,
		view: view.New(view.Config{
			Cmd:     opts.Cmd.String(),
			Refresh: opts.Refresh,
			Sleep:   opts.Period,
		}, deps.API),
		ctl: newControl(),
	}

	ctlCtx, stopCtl := context.WithCancel(ctx)
	defer stopCtl()
	go r.ctl.listen(ctlCtx, deps.Actions)

	code, err := r.loop(ctx)
	if stopErr := r.paint(r.view.Stop()); stopErr != nil && err == nil {
		err = stopErr
	}
	runLog.Info("runner_exit", slog.Int("runs", r.runs), slog.Int("code", code))
	return code, err
}

func (r *runner) loop(ctx context.Context) (int, error) {
	for {
		sts, finished, err := r.runOnce(ctx)
		if err != nil {
			return ExitError, err
		}
		if !finished {
			return ExitKilled, nil
		}
		if code, stop := r.stopCode(sts); stop {
			return code, nil
		}
		if r.ctl.quitRequested() {
			return ExitOK, nil
		}
		again, err := r.sleep(ctx)
		if err != nil {
			return ExitError, err
		}
		if !again {
			if r.ctl.killRequested() || ctx.Err() != nil {
				return ExitKilled, nil
			}
			return ExitOK, nil
		}
	}
}

// stopCode applies the until-success/until-failure policy.
func (r *runner) stopCode(sts process.ExitStatus) (int, bool) {
	switch {
	case r.opts.UntilSuccess && sts.Success():
		return ExitOK, true
	case r.opts.UntilFailure && !sts.Success():
		return exitCodeOf(sts), true
	default:
		return 0, false
	}
}

func exitCodeOf(sts process.ExitStatus) int {
	if sts.Signaled {
		return 128 + sts.Signal
	}
	if sts.Code < 0 || sts.Code > 255 {
		return ExitError
	}
	return sts.Code
}

// runOnce executes the command once. finished is false when the run was
// killed or ctx was cancelled before it ended.
func (r *runner) runOnce(ctx context.Context) (sts process.ExitStatus, finished bool, err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.ctl.enter(cancel, false)
	defer r.ctl.leave()

	r.runs++
	if err := r.paint(r.view.StartRun(r.deps.API.Now())); err != nil {
		return sts, false, err
	}

	src, err := r.deps.API.Spawn(runCtx, r.opts.Cmd)
	if err != nil {
		if runCtx.Err() != nil {
			return sts, false, nil
		}
		return sts, false, fmt.Errorf("failed to run %s: %w", r.opts.Cmd, err)
	}
	defer src.Stop()

	s := stream.New(runCtx, src, r.deps.NewTicker(r.opts.Refresh), r.deps.API)
	defer s.Close()

	for {
		ev, ok := s.Next(runCtx)
		if !ok {
			break
		}
		if err := r.paint(r.view.Handle(ev)); err != nil {
			return sts, false, err
		}
		if ev.Kind == stream.KindDone {
			runLog.Debug("run_done", slog.Int("run", r.runs), slog.String("status", ev.Status.String()))
			return ev.Status, true, nil
		}
	}

	if runCtx.Err() != nil {
		runLog.Info("run_cancelled", slog.Int("run", r.runs))
		return sts, false, nil
	}
	// The source ended without an exit status; finish the run as a failure
	// so the view and the stop policy still see an ending.
	sts = process.Exited(-1)
	runLog.Warn("run_ended_without_status", slog.Int("run", r.runs))
	done := stream.Event{Kind: stream.KindDone, Status: sts, Time: r.deps.API.Now()}
	if err := r.paint(r.view.Handle(done)); err != nil {
		return sts, false, err
	}
	return sts, true, nil
}

// sleep waits for the period between runs, keeping the countdown fresh. It
// returns false when the loop should end instead of running again.
func (r *runner) sleep(ctx context.Context) (bool, error) {
	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.ctl.enter(cancel, true)
	defer r.ctl.leave()

	timer := time.NewTimer(r.opts.Period)
	defer timer.Stop()
	ticks := r.deps.NewTicker(r.opts.Refresh)
	defer ticks.Stop()

	for {
		select {
		case <-timer.C:
			return true, nil
		case path := <-r.deps.Wake:
			runLog.Info("sleep_interrupted_by_change", slog.String("path", path))
			return true, nil
		case <-ticks.C():
			tick := stream.Event{Kind: stream.KindTick, Time: r.deps.API.Now()}
			if err := r.paint(r.view.Handle(tick)); err != nil {
				return false, err
			}
		case <-sleepCtx.Done():
			return false, nil
		}
	}
}

func (r *runner) paint(cmds []paint.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	if err := r.deps.Sink.Apply(cmds...); err != nil {
		return fmt.Errorf("paint: %w", err)
	}
	return nil
}
