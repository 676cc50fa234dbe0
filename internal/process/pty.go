//go:build !windows
// +build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// PTYSpawner runs commands on a pseudo-terminal so they behave as they would
// interactively (colors, line buffering). The child's stdout and stderr are
// the same terminal, so every line arrives as Stdout.
type PTYSpawner struct {
	Grace time.Duration
	// Cols is the terminal width given to the child; 0 means 80.
	Cols int
	Env  []string
}

const ptyRows = 24

// Spawn implements Spawner.
func (s PTYSpawner) Spawn(ctx context.Context, c Cmd) (Source, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	grace := s.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	cols := s.Cols
	if cols <= 0 {
		cols = 80
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Env = s.Env
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = grace

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: ptyRows})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start pty: %w", err)
	}
	procLog.Debug("process_started",
		slog.String("cmd", c.String()),
		slog.Int("pid", cmd.Process.Pid),
		slog.Bool("pty", true))

	r := newRunning(cancel)
	var reader sync.WaitGroup
	reader.Add(1)
	go r.scan(ctx, &ptyReader{f: ptmx}, Stdout, &reader)

	go func() {
		defer close(r.done)
		defer close(r.items)
		defer cancel()

		waitErr := cmd.Wait()

		// The master reports EIO once every holder of the slave is gone;
		// a background grandchild may keep it open, so bound the wait.
		drained := make(chan struct{})
		go func() {
			reader.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(grace):
			_ = ptmx.Close()
			<-drained
		}
		_ = ptmx.Close()

		if cmd.ProcessState == nil {
			r.send(ctx, Item{Kind: Err, Err: fmt.Errorf("wait: %w", waitErr)})
			return
		}
		sts := statusOf(cmd.ProcessState)
		procLog.Debug("process_exited",
			slog.String("cmd", c.String()),
			slog.String("status", sts.String()))
		r.send(ctx, Item{Kind: Done, Status: sts})
	}()

	return r, nil
}

// ptyReader turns the EIO a pty master returns after the slave side closes
// into a plain EOF.
type ptyReader struct {
	f *os.File
}

func (p *ptyReader) Read(b []byte) (int, error) {
	n, err := p.f.Read(b)
	if err != nil && (errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)) {
		err = io.EOF
	}
	return n, err
}

func (p *ptyReader) Close() error { return nil }
