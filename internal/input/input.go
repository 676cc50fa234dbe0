// Package input reads single-key commands from the controlling terminal.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/asheshgoplani/ogle/internal/logging"
)

var inputLog = logging.ForComponent(logging.CompInput)

// Action is what the user asked for.
type Action int

const (
	None Action = iota
	// Quit exits after the current run finishes.
	Quit
	// Kill stops the current run and exits.
	Kill
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Quit:
		return "quit"
	case Kill:
		return "kill"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

// Parse maps a key byte to an Action.
func Parse(b byte) Action {
	switch b {
	case 'q', 'Q', ctrlD:
		return Quit
	case 'k', 'K', ctrlC:
		return Kill
	default:
		return None
	}
}

// Listen reads keys from r until ctx is done or r fails, sending every
// recognized action. The channel is closed when reading stops.
func Listen(ctx context.Context, r io.Reader) <-chan Action {
	actions := make(chan Action, 4)
	go func() {
		defer close(actions)
		buf := make([]byte, 32)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				a := Parse(b)
				if a == None {
					continue
				}
				inputLog.Debug("key_action", slog.String("action", a.String()))
				select {
				case actions <- a:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					inputLog.Warn("key_read_error", slog.String("error", err.Error()))
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return actions
}

// Terminal is the keyboard of an interactive session.
type Terminal struct {
	f     *os.File
	state *term.State
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// OpenTerminal puts f in raw mode so single keys arrive without Enter.
// Restore must be called before exiting.
func OpenTerminal(f *os.File) (*Terminal, error) {
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	return &Terminal{f: f, state: state}, nil
}

// Listen starts reading keys.
func (t *Terminal) Listen(ctx context.Context) <-chan Action {
	return Listen(ctx, t.f)
}

// Restore returns the terminal to its original mode.
func (t *Terminal) Restore() error {
	return term.Restore(int(t.f.Fd()), t.state)
}
