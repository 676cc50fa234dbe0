package process

import (
	"fmt"
	"os"
)

// ExitStatus describes how a process ended.
type ExitStatus struct {
	Code     int
	Signal   int
	Signaled bool
}

// Success reports a zero exit code.
func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return fmt.Sprintf("signal %d", s.Signal)
	case s.Code == 0:
		return "success"
	default:
		return fmt.Sprintf("code %d", s.Code)
	}
}

// Exited returns the status of a normal exit with code.
func Exited(code int) ExitStatus {
	return ExitStatus{Code: code}
}

// Killed returns the status of a process ended by signal sig.
func Killed(sig int) ExitStatus {
	return ExitStatus{Signal: sig, Signaled: true}
}

func statusOf(ps *os.ProcessState) ExitStatus {
	if sig, ok := signalOf(ps); ok {
		return Killed(sig)
	}
	return Exited(ps.ExitCode())
}
