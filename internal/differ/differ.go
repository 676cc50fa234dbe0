// Package differ detects the first point where a run's output departs from
// the output of the previous run.
package differ

// Differ compares the lines of the current run against the previous run.
//
// Before divergence, lines holds the previous run and pos is the compare
// cursor. Once diverged, lines is truncated to the common prefix and becomes
// the accumulating buffer for the current run; pos then marks how much of it
// has already been drained.
type Differ struct {
	lines    []string
	pos      int
	diverged bool
}

// New returns an empty Differ. The first line pushed always diverges.
func New() *Differ {
	return &Differ{}
}

// Reset prepares for a new run. The lines of the run that just finished
// become the baseline.
func (d *Differ) Reset() {
	d.diverged = false
	d.pos = 0
}

// Push records one line of the current run.
func (d *Differ) Push(line string) {
	if d.diverged {
		d.lines = append(d.lines, line)
		return
	}
	if d.pos < len(d.lines) && d.lines[d.pos] == line {
		d.pos++
		return
	}
	d.diverge()
	d.lines = append(d.lines, line)
}

// Finish is called when the run ends. It reports whether the run turned out
// shorter than the baseline, which no Push can detect on its own. In that
// case the Differ is marked as diverged and the common prefix is ready to be
// drained.
func (d *Differ) Finish() bool {
	if d.diverged || d.pos >= len(d.lines) {
		return false
	}
	d.diverge()
	return true
}

func (d *Differ) diverge() {
	d.diverged = true
	d.lines = d.lines[:d.pos]
	d.pos = 0
}

// Changed reports whether the current run has diverged.
func (d *Differ) Changed() bool {
	return d.diverged
}

// Drain returns the lines of the current run that were not returned yet.
// The first Drain after divergence returns the whole run so far.
// It panics when the run has not diverged.
func (d *Differ) Drain() []string {
	if !d.diverged {
		panic("differ: Drain called before divergence")
	}
	out := make([]string, len(d.lines)-d.pos)
	copy(out, d.lines[d.pos:])
	d.pos = len(d.lines)
	return out
}

// Len returns the number of lines held, either baseline or accumulated.
func (d *Differ) Len() int {
	return len(d.lines)
}
