package paint

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"
)

// Terminal executes commands on a real terminal through termenv.
type Terminal struct {
	mu  sync.Mutex
	w   *errWriter
	out *termenv.Output
	raw bool
}

// NewTerminal returns a sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	ew := &errWriter{w: w}
	return &Terminal{
		w:   ew,
		out: termenv.NewOutput(ew, termenv.WithProfile(termenv.Ascii)),
	}
}

// SetRaw tells the sink whether the terminal is in raw mode. Raw mode turns
// off output post-processing, so newlines need an explicit carriage return.
func (t *Terminal) SetRaw(raw bool) {
	t.mu.Lock()
	t.raw = raw
	t.mu.Unlock()
}

// Apply implements Sink. It stops at the first write error.
func (t *Terminal) Apply(cmds ...Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range cmds {
		switch c := c.(type) {
		case MoveCursorUp:
			t.out.CursorPrevLine(c.N)
		case ClearLine:
			t.out.ClearLine()
		case WriteAll:
			data := c.Data
			if t.raw {
				data = bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
			}
			_, _ = t.out.Write(data)
		default:
			return fmt.Errorf("unknown paint command %T", c)
		}
		if err := t.w.err; err != nil {
			return fmt.Errorf("terminal write: %w", err)
		}
	}
	return nil
}

// errWriter remembers the first write error; termenv's cursor helpers
// discard it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
