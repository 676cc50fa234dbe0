package process

import (
	"context"
	"sync"
)

// Script replays canned runs instead of starting processes. Each Spawn
// consumes the next run; once they are exhausted the last one repeats.
type Script struct {
	mu    sync.Mutex
	runs  [][]Item
	next  int
	calls []Cmd
}

// NewScript returns a Script that replays runs in order.
func NewScript(runs ...[]Item) *Script {
	return &Script{runs: runs}
}

// Lines builds a run that prints lines on stdout and exits with code.
func Lines(code int, lines ...string) []Item {
	items := make([]Item, 0, len(lines)+1)
	for _, l := range lines {
		items = append(items, Item{Kind: Stdout, Line: l})
	}
	return append(items, Item{Kind: Done, Status: Exited(code)})
}

// Spawn implements Spawner.
func (s *Script) Spawn(ctx context.Context, c Cmd) (Source, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	var run []Item
	if len(s.runs) > 0 {
		i := s.next
		if i >= len(s.runs) {
			i = len(s.runs) - 1
		} else {
			s.next++
		}
		run = s.runs[i]
	}
	s.mu.Unlock()

	ch := make(chan Item, len(run))
	for _, it := range run {
		ch <- it
	}
	close(ch)
	return scripted(ch), nil
}

// Calls returns the commands spawned so far.
func (s *Script) Calls() []Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Cmd(nil), s.calls...)
}

type scripted chan Item

func (s scripted) Items() <-chan Item { return s }
func (s scripted) Stop()              {}
