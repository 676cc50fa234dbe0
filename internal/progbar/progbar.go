// Package progbar formats the ephemeral status line and the markers used on
// permanent output.
package progbar

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// TimeLayout is the timestamp format used on every marked line.
const TimeLayout = "2006-01-02 15:04:05"

const (
	outputMarker = "<O>"
	statusMarker = "=>"
)

// barThreshold is the shortest previous run that gets a progress bar; faster
// commands only get the spinner.
const barThreshold = 3 * time.Second

// Permanent formats a message for the scrolled history.
func Permanent(t time.Time, msg string) string {
	return outputMarker + " " + t.Format(TimeLayout) + " " + msg
}

// Command formats the command line as shown after the banner and after a
// change marker.
func Command(cmd string) string {
	return "+ " + cmd
}

// Status formats a status line and fits it into width columns. One column is
// left free so the terminal never wraps it onto a second line.
func Status(t time.Time, msg string, width int) string {
	line := statusMarker + " " + t.Format(TimeLayout) + " " + msg
	if width <= 1 {
		return line
	}
	return runewidth.Truncate(line, width-1, "")
}

// StatusOverhead is the number of columns Status adds before msg.
func StatusOverhead() int {
	return len(statusMarker) + 1 + len(TimeLayout) + 1
}

// Running renders the status of a running command. When the previous run
// took long enough, a bar scaled to its duration shows the expected progress.
// width is the room available for the returned text.
func Running(width int, now, start time.Time, prev time.Duration, refresh time.Duration, spin rune) string {
	if prev <= barThreshold || refresh <= 0 {
		return fmt.Sprintf("running [%c]", spin)
	}
	const header = "running ["
	const trailer = "] [x]"
	room := width - len(header) - len(trailer)
	if room <= 0 {
		return fmt.Sprintf("running [%c]", spin)
	}
	total := int(prev / refresh)
	if total > room {
		total = room
	}
	if total < 1 {
		total = 1
	}
	left := total
	elapsed := now.Sub(start)
	if elapsed < prev {
		left = int(ceilDiv(int64(elapsed)*int64(total), int64(prev)))
	}
	if left < 0 {
		left = 0
	}
	right := total - left

	var b strings.Builder
	b.WriteString(header)
	if left > 0 {
		b.WriteString(strings.Repeat("=", left-1))
		if right == 0 {
			b.WriteByte('=')
		} else {
			b.WriteByte('>')
		}
	}
	b.WriteString(strings.Repeat(" ", right))
	fmt.Fprintf(&b, "] [%c]", spin)
	return b.String()
}

// Sleeping renders the countdown shown between runs. last describes how the
// previous run ended, e.g. "success" or "code 2".
func Sleeping(now, deadline time.Time, last string, spin rune) string {
	secs := int64(0)
	if remaining := deadline.Sub(now); remaining > 0 {
		secs = ceilDiv(int64(remaining), int64(time.Second))
	}
	return fmt.Sprintf("exited with %s, sleeping for %ds [%c]", last, secs, spin)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
