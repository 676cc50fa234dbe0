// Package stream merges the output of a running process with a periodic
// refresh tick into one ordered sequence of events.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asheshgoplani/ogle/internal/logging"
	"github.com/asheshgoplani/ogle/internal/process"
	"github.com/asheshgoplani/ogle/internal/sys"
)

var streamLog = logging.ForComponent(logging.CompStream)

// Kind identifies an Event.
type Kind int

const (
	KindLineOut Kind = iota
	KindLineErr
	KindDone
	KindErr
	KindTick
)

func (k Kind) String() string {
	switch k {
	case KindLineOut:
		return "line_out"
	case KindLineErr:
		return "line_err"
	case KindDone:
		return "done"
	case KindErr:
		return "err"
	case KindTick:
		return "tick"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one element of the merged stream. Time is when the consumer
// received it.
type Event struct {
	Kind   Kind
	Time   time.Time
	Line   string
	Status process.ExitStatus
	Err    error
}

// Streamer is the single receiver of a process source and a tick source.
// Pending process items always win over a pending tick, and once the
// process is done no more events are produced.
type Streamer struct {
	src   process.Source
	clock sys.Clock

	ticks  chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group

	finished  bool
	closeOnce sync.Once
}

// New starts merging src with ticks. The tick worker runs until the process
// is done or Close is called.
func New(ctx context.Context, src process.Source, ticks TickSource, clock sys.Clock) *Streamer {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s := &Streamer{
		src:    src,
		clock:  clock,
		ticks:  make(chan struct{}, 1),
		cancel: cancel,
		group:  g,
	}
	g.Go(func() error {
		defer ticks.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case _, ok := <-ticks.C():
				if !ok {
					return nil
				}
				// Ticks coalesce: a consumer busy with output only needs one.
				select {
				case s.ticks <- struct{}{}:
				default:
				}
			}
		}
	})
	return s
}

// Next blocks until the next event. ok is false at end of stream: after the
// Done event was delivered, when the process source closed, or when ctx is
// cancelled.
func (s *Streamer) Next(ctx context.Context) (Event, bool) {
	if s.finished {
		return Event{}, false
	}

	select {
	case it, ok := <-s.src.Items():
		return s.fromItem(it, ok)
	default:
	}

	select {
	case it, ok := <-s.src.Items():
		return s.fromItem(it, ok)
	case <-s.ticks:
		logging.Aggregate(logging.CompStream, "tick")
		return Event{Kind: KindTick, Time: s.clock.Now()}, true
	case <-ctx.Done():
		return Event{}, false
	}
}

func (s *Streamer) fromItem(it process.Item, ok bool) (Event, bool) {
	if !ok {
		streamLog.Debug("stream_source_closed")
		s.finish()
		return Event{}, false
	}
	ev := Event{Time: s.clock.Now(), Line: it.Line, Status: it.Status, Err: it.Err}
	switch it.Kind {
	case process.Stdout:
		ev.Kind = KindLineOut
	case process.Stderr:
		ev.Kind = KindLineErr
	case process.Err:
		ev.Kind = KindErr
		streamLog.Warn("stream_process_error", slog.Any("error", it.Err))
	case process.Done:
		ev.Kind = KindDone
		s.finish()
	}
	return ev, true
}

func (s *Streamer) finish() {
	s.finished = true
	s.Close()
}

// Close stops the tick worker. It does not stop the process.
func (s *Streamer) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.group.Wait()
	})
}
