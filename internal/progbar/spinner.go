package progbar

var spinnerFrames = [...]rune{'/', '-', '\\', '|'}

// Spinner cycles through the status line animation frames.
type Spinner struct {
	i int
}

// Next returns the current frame and advances.
func (s *Spinner) Next() rune {
	r := spinnerFrames[s.i]
	s.i = (s.i + 1) % len(spinnerFrames)
	return r
}
