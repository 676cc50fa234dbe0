package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/asheshgoplani/ogle/internal/input"
)

// control applies user keys to whatever phase the loop is in. Kill cancels
// the current phase; quit only cuts a sleep short and otherwise lets the
// running command finish.
type control struct {
	mu       sync.Mutex
	quit     bool
	kill     bool
	sleeping bool
	cancel   context.CancelFunc
}

func newControl() *control {
	return &control{}
}

func (c *control) listen(ctx context.Context, actions <-chan input.Action) {
	if actions == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-actions:
			if !ok {
				return
			}
			c.handle(a)
		}
	}
}

func (c *control) handle(a input.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runLog.Info("user_action", slog.String("action", a.String()), slog.Bool("sleeping", c.sleeping))
	switch a {
	case input.Quit:
		c.quit = true
		if c.sleeping && c.cancel != nil {
			c.cancel()
		}
	case input.Kill:
		c.kill = true
		if c.cancel != nil {
			c.cancel()
		}
	}
}

// enter registers the cancel function of a new phase. A kill or quit that
// arrived between phases takes effect immediately.
func (c *control) enter(cancel context.CancelFunc, sleeping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = cancel
	c.sleeping = sleeping
	if c.kill || (sleeping && c.quit) {
		cancel()
	}
}

func (c *control) leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
	c.sleeping = false
}

func (c *control) quitRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quit
}

func (c *control) killRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kill
}
