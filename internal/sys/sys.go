// Package sys is the boundary between ogle and the machine it runs on: the
// clock, the terminal size and process creation.
package sys

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/asheshgoplani/ogle/internal/process"
)

// DefaultWidth is used when the terminal size cannot be determined.
const DefaultWidth = 80

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// API is everything the watcher needs from the system.
type API interface {
	Clock
	Width() int
	Spawn(ctx context.Context, cmd process.Cmd) (process.Source, error)
}

// Real is the API backed by the operating system.
type Real struct {
	Spawner process.Spawner
	// Out is the terminal whose width is reported; nil means stdout.
	Out *os.File
}

// NewReal returns a Real API that spawns with s.
func NewReal(s process.Spawner) *Real {
	return &Real{Spawner: s, Out: os.Stdout}
}

func (r *Real) Now() time.Time { return time.Now() }

// Width returns the terminal width, or DefaultWidth when the output is not a
// terminal.
func (r *Real) Width() int {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	w, _, err := term.GetSize(int(out.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

func (r *Real) Spawn(ctx context.Context, cmd process.Cmd) (process.Source, error) {
	return r.Spawner.Spawn(ctx, cmd)
}

// Virtual is a deterministic API for tests. Time starts at the Unix epoch
// and every call to Now advances it by Step.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	Step   time.Duration
	Script *process.Script
}

// NewVirtual returns a Virtual API replaying script.
func NewVirtual(script *process.Script) *Virtual {
	return &Virtual{
		now:    time.Unix(0, 0).UTC(),
		Step:   time.Second,
		Script: script,
	}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := v.now
	v.now = v.now.Add(v.Step)
	return t
}

// Peek returns the time the next Now call will report, without advancing.
func (v *Virtual) Peek() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) Width() int { return DefaultWidth }

func (v *Virtual) Spawn(ctx context.Context, cmd process.Cmd) (process.Source, error) {
	return v.Script.Spawn(ctx, cmd)
}
