// Package paint defines the low-level terminal commands produced by the view
// and the sinks that execute them.
package paint

import (
	"fmt"
	"strings"
)

// Command is one low-level terminal operation.
type Command interface {
	isCommand()
	String() string
}

// MoveCursorUp moves the cursor N lines up, to the first column.
type MoveCursorUp struct {
	N int
}

// ClearLine erases the line under the cursor.
type ClearLine struct{}

// WriteAll writes Data verbatim.
type WriteAll struct {
	Data []byte
}

func (MoveCursorUp) isCommand() {}
func (ClearLine) isCommand()    {}
func (WriteAll) isCommand()     {}

func (c MoveCursorUp) String() string { return fmt.Sprintf("up(%d)", c.N) }
func (ClearLine) String() string      { return "clear" }
func (c WriteAll) String() string     { return fmt.Sprintf("write(%q)", c.Data) }

// Line returns a WriteAll of s followed by a newline.
func Line(s string) WriteAll {
	return WriteAll{Data: []byte(s + "\n")}
}

// Sink executes commands in order.
type Sink interface {
	Apply(cmds ...Command) error
}

// Describe renders a command list compactly, for logs and test failures.
func Describe(cmds []Command) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
