package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/asheshgoplani/ogle/internal/logging"
)

var procLog = logging.ForComponent(logging.CompProcess)

const (
	// DefaultGrace is how long a stopped process gets between SIGTERM and
	// SIGKILL, and how long Wait waits for stray holders of its output.
	DefaultGrace = 2 * time.Second

	scannerInitialBufferSize = 64 * 1024
	scannerMaxBufferSize     = 1024 * 1024

	itemsBuffer = 128
)

// ExecSpawner runs commands directly with os/exec, with stdout and stderr on
// separate pipes.
type ExecSpawner struct {
	Grace time.Duration
	// Env, when set, replaces the environment of the child.
	Env []string
}

// Spawn implements Spawner.
func (s ExecSpawner) Spawn(ctx context.Context, c Cmd) (Source, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	grace := s.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Env = s.Env
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = grace

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", c.Args[0], err)
	}
	procLog.Debug("process_started",
		slog.String("cmd", c.String()),
		slog.Int("pid", cmd.Process.Pid))

	r := newRunning(cancel)
	var readers sync.WaitGroup
	readers.Add(2)
	go r.scan(ctx, outR, Stdout, &readers)
	go r.scan(ctx, errR, Stderr, &readers)

	go func() {
		defer close(r.done)
		defer close(r.items)
		defer cancel()

		waitErr := cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
		readers.Wait()

		if waitErr != nil && cmd.ProcessState == nil {
			r.send(ctx, Item{Kind: Err, Err: fmt.Errorf("wait: %w", waitErr)})
			return
		}
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
			r.send(ctx, Item{Kind: Err, Err: fmt.Errorf("wait: %w", waitErr)})
		}
		sts := statusOf(cmd.ProcessState)
		procLog.Debug("process_exited",
			slog.String("cmd", c.String()),
			slog.String("status", sts.String()))
		r.send(ctx, Item{Kind: Done, Status: sts})
	}()

	return r, nil
}

// running is the Source shared by the exec and pty spawners.
type running struct {
	items  chan Item
	cancel context.CancelFunc
	done   chan struct{}
}

func newRunning(cancel context.CancelFunc) *running {
	return &running{
		items:  make(chan Item, itemsBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (r *running) Items() <-chan Item { return r.items }

func (r *running) Stop() {
	r.cancel()
	<-r.done
}

// send delivers it unless the source was stopped.
func (r *running) send(ctx context.Context, it Item) bool {
	select {
	case r.items <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

// scan forwards the lines of rd as items of kind. A read error becomes an
// Err item; the rest of the stream is discarded so the writer never blocks.
func (r *running) scan(ctx context.Context, rd io.ReadCloser, kind ItemKind, wg *sync.WaitGroup) {
	defer wg.Done()
	defer rd.Close()

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, scannerInitialBufferSize), scannerMaxBufferSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !r.send(ctx, Item{Kind: kind, Line: line}) {
			return
		}
	}
	if err := scanner.Err(); err != nil && !isClosedRead(err) {
		procLog.Warn("process_read_error",
			slog.String("stream", kind.String()),
			slog.String("error", err.Error()))
		r.send(ctx, Item{Kind: Err, Err: fmt.Errorf("read %s: %w", kind, err)})
		_, _ = io.Copy(io.Discard, rd)
	}
}

func isClosedRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
