package logging

import (
	"bytes"
	"log/slog"
	"strings"
)

// BridgeWriter sends output of the standard library log package into the
// structured log, so nothing written with log.Printf reaches the terminal.
// A leading "[name] " tag selects the component.
type BridgeWriter struct {
	component string
}

// NewBridgeWriter returns a writer logging under defaultComponent when a
// line carries no tag.
func NewBridgeWriter(defaultComponent string) *BridgeWriter {
	return &BridgeWriter{component: defaultComponent}
}

// Write implements io.Writer. Each call is one record.
func (bw *BridgeWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimSpace(p))
	if msg == "" {
		return len(p), nil
	}
	msg = stripLogTimestamp(msg)

	component := bw.component
	if strings.HasPrefix(msg, "[") {
		if i := strings.Index(msg, "] "); i > 0 {
			component = canonicalComponent(strings.ToLower(msg[1:i]))
			msg = msg[i+2:]
		}
	}

	Logger().Info(msg, slog.String("component", component))
	return len(p), nil
}

// stripLogTimestamp drops the date and time prefixes of the log package's
// standard flags ("2006/01/02 15:04:05 " and optional microseconds).
func stripLogTimestamp(s string) string {
	if len(s) > 11 && s[4] == '/' && s[7] == '/' && s[10] == ' ' {
		s = s[11:]
	}
	if len(s) > 16 && s[2] == ':' && s[5] == ':' && s[8] == '.' && s[15] == ' ' {
		return s[16:]
	}
	if len(s) > 9 && s[2] == ':' && s[5] == ':' && s[8] == ' ' {
		return s[9:]
	}
	return s
}

func canonicalComponent(tag string) string {
	switch tag {
	case "run", "loop", "runner":
		return CompRunner
	case "exec", "pty", "proc", "process":
		return CompProcess
	case "fsnotify", "watch":
		return CompWatch
	case "keys", "tty", "input":
		return CompInput
	default:
		return tag
	}
}
