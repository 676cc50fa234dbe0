// Package process spawns the watched command and exposes its output as a
// stream of line and exit items.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCommand is returned when there is nothing to run.
var ErrEmptyCommand = errors.New("empty command")

// Cmd is the command being watched.
type Cmd struct {
	Args []string
}

// NewCmd builds a Cmd from argv.
func NewCmd(args ...string) Cmd {
	return Cmd{Args: append([]string(nil), args...)}
}

// String returns the command as displayed to the user. Arguments are joined
// with spaces, without quoting.
func (c Cmd) String() string {
	return strings.Join(c.Args, " ")
}

func (c Cmd) validate() error {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return ErrEmptyCommand
	}
	return nil
}

// ItemKind identifies what an Item carries.
type ItemKind int

const (
	Stdout ItemKind = iota
	Stderr
	Done
	Err
)

func (k ItemKind) String() string {
	switch k {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	case Done:
		return "done"
	case Err:
		return "err"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// Item is one event from a running process.
type Item struct {
	Kind   ItemKind
	Line   string
	Status ExitStatus
	Err    error
}

// Source is a running process. Items is closed after the Done item, or
// early when the process is stopped.
type Source interface {
	Items() <-chan Item
	// Stop terminates the process if it is still running and releases its
	// resources. It is safe to call more than once and after completion.
	Stop()
}

// Spawner starts processes.
type Spawner interface {
	Spawn(ctx context.Context, cmd Cmd) (Source, error)
}
