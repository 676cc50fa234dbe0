package stream

import "time"

// TickSource is a periodic timer.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// Ticker wraps time.Ticker as a TickSource.
type Ticker struct {
	t *time.Ticker
}

// NewTicker returns a TickSource firing every d.
func NewTicker(d time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(d)}
}

func (t *Ticker) C() <-chan time.Time { return t.t.C }
func (t *Ticker) Stop()               { t.t.Stop() }

// ManualTicker fires only when told to. Used by tests.
type ManualTicker struct {
	c chan time.Time
}

// NewManualTicker returns a ManualTicker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan time.Time)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }
func (m *ManualTicker) Stop()               {}

// Fire delivers one tick, giving up after timeout if nobody is listening.
// It reports whether the tick was taken.
func (m *ManualTicker) Fire(timeout time.Duration) bool {
	select {
	case m.c <- time.Time{}:
		return true
	case <-time.After(timeout):
		return false
	}
}
