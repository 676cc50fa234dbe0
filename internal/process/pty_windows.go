//go:build windows
// +build windows

package process

import (
	"context"
	"errors"
	"time"
)

// PTYSpawner is not available on Windows.
type PTYSpawner struct {
	Grace time.Duration
	Cols  int
	Env   []string
}

// Spawn always fails on Windows.
func (PTYSpawner) Spawn(context.Context, Cmd) (Source, error) {
	return nil, errors.New("pty mode is not supported on windows")
}
