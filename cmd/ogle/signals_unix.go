//go:build !windows

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/asheshgoplani/ogle/internal/logging"
)

// dumpOnSignal writes the log ring buffer to logDir on SIGUSR1.
func dumpOnSignal(logDir string) func() {
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		for range usr1 {
			dumpPath := filepath.Join(logDir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
			if err := logging.DumpRingBuffer(dumpPath); err != nil {
				mainLog.Error("crash_dump_failed", slog.String("error", err.Error()))
			} else {
				mainLog.Info("crash_dump_written", slog.String("path", dumpPath))
			}
		}
	}()
	return func() {
		signal.Stop(usr1)
		close(usr1)
	}
}
