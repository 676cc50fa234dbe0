package paint

import (
	"strings"
	"sync"
)

// Recorder is a Sink that keeps every command and maintains a simple model
// of the resulting screen.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	screen   Screen
}

// Apply implements Sink.
func (r *Recorder) Apply(cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmds...)
	r.screen.Apply(cmds...)
	return nil
}

// Commands returns a copy of everything applied so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Lines returns the screen as it would look now.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen.Lines()
}

// Screen models a terminal that only ever appends at the bottom and erases
// lines above the cursor.
type Screen struct {
	lines []string
	row   int
}

// Apply executes cmds against the model.
func (s *Screen) Apply(cmds ...Command) {
	for _, c := range cmds {
		switch c := c.(type) {
		case MoveCursorUp:
			s.row -= c.N
			if s.row < 0 {
				s.row = 0
			}
		case ClearLine:
			s.ensure()
			s.lines[s.row] = ""
		case WriteAll:
			s.write(string(c.Data))
		}
	}
}

func (s *Screen) ensure() {
	for len(s.lines) <= s.row {
		s.lines = append(s.lines, "")
	}
}

func (s *Screen) write(text string) {
	for {
		s.ensure()
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			s.lines[s.row] += text
			return
		}
		s.lines[s.row] += text[:i]
		s.row++
		text = text[i+1:]
	}
}

// Lines returns the non-empty content above the cursor plus the cursor line
// when it has text.
func (s *Screen) Lines() []string {
	end := s.row
	if end < len(s.lines) && s.lines[end] != "" {
		end++
	}
	if end > len(s.lines) {
		end = len(s.lines)
	}
	return append([]string(nil), s.lines[:end]...)
}
