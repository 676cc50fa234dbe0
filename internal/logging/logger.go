// Package logging is ogle's structured debug log. The terminal belongs to the
// watched command's output and the status line, so logs only ever go to a
// rotated file under the ogle directory, and nowhere at all unless debugging
// is enabled.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names, attached to every record of a component logger.
const (
	CompRunner  = "runner"
	CompView    = "view"
	CompProcess = "process"
	CompStream  = "stream"
	CompInput   = "input"
	CompWatch   = "watch"
	CompConfig  = "config"
	CompMain    = "main"
)

// LogFileName is the name of the log inside Config.LogDir.
const LogFileName = "debug.log"

// DefaultPprofAddr is where pprof listens when Config.PprofAddr is empty.
const DefaultPprofAddr = "localhost:6060"

// Config holds logging configuration.
type Config struct {
	// LogDir is the directory for log files (e.g. ~/.ogle)
	LogDir string

	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string

	// Format is "json" (default) or "text"
	Format string

	// MaxSizeMB is the max size in MB before rotation (default: 10)
	MaxSizeMB int

	// MaxBackups is rotated files to keep (default: 5)
	MaxBackups int

	// MaxAgeDays is days to keep rotated files (default: 10)
	MaxAgeDays int

	// Compress rotated files
	Compress bool

	// RingBufferSize is the in-memory ring buffer size in bytes (default: 1MB)
	RingBufferSize int

	// AggregateIntervalSecs is the aggregation flush interval (default: 30)
	AggregateIntervalSecs int

	// PprofEnabled starts pprof server on PprofAddr
	PprofEnabled bool

	// PprofAddr is the pprof listen address (default: localhost:6060)
	PprofAddr string

	// Debug turns logging on. Without it everything is discarded.
	Debug bool
}

var (
	globalLogger *slog.Logger
	globalRing   *RingBuffer
	globalAgg    *Aggregator
	globalMu     sync.RWMutex
	rotator      *lumberjack.Logger
	pprofLn      net.Listener
)

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init sets up the global logger. With Debug off, or without a LogDir,
// records are discarded and Init never fails.
func Init(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 10
	}
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = 1024 * 1024
	}
	if cfg.AggregateIntervalSecs <= 0 {
		cfg.AggregateIntervalSecs = 30
	}

	if !cfg.Debug || cfg.LogDir == "" {
		globalLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		globalRing = NewRingBuffer(1024)
		globalAgg = NewAggregator(nil, cfg.AggregateIntervalSecs)
		return nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		globalLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		return fmt.Errorf("create log dir: %w", err)
	}

	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	globalRing = NewRingBuffer(cfg.RingBufferSize)
	w := io.MultiWriter(rotator, globalRing)

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	globalLogger = slog.New(handler)

	globalAgg = NewAggregator(globalLogger, cfg.AggregateIntervalSecs)
	globalAgg.Start()

	if cfg.PprofEnabled {
		// A busy port disables only the profiler.
		if err := startPprof(cfg.PprofAddr); err != nil {
			globalLogger.Warn("pprof_disabled",
				slog.String("component", CompMain),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Logger returns the global logger. Before Init it discards everything.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return globalLogger
}

// ForComponent returns a logger tagging records with component=name.
// It resolves the global handler on every record, so package-level loggers
// created before Init still end up in the log file.
func ForComponent(name string) *slog.Logger {
	return slog.New(&componentHandler{component: name})
}

type componentHandler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &componentHandler{component: h.component, attrs: merged, group: h.group}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{component: h.component, attrs: h.attrs, group: name}
}

// Aggregate counts a high-frequency event; the counts are logged
// periodically as event_summary records.
func Aggregate(component, key string, fields ...slog.Attr) {
	globalMu.RLock()
	agg := globalAgg
	globalMu.RUnlock()
	if agg != nil {
		agg.Record(component, key, fields...)
	}
}

// DumpRingBuffer writes the most recent log records to path.
func DumpRingBuffer(path string) error {
	globalMu.RLock()
	ring := globalRing
	globalMu.RUnlock()
	if ring == nil {
		return nil
	}
	return ring.DumpToFile(path)
}

// Shutdown flushes pending summaries and closes the log file.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalAgg != nil {
		globalAgg.Stop()
		globalAgg = nil
	}
	if pprofLn != nil {
		_ = pprofLn.Close()
		pprofLn = nil
	}
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
	globalLogger = nil
	globalRing = nil
}

// PprofAddr returns the address pprof is listening on, or "" when it is off.
func PprofAddr() string {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if pprofLn == nil {
		return ""
	}
	return pprofLn.Addr().String()
}

// startPprof binds addr and serves the pprof handlers until Shutdown. The
// caller holds globalMu.
func startPprof(addr string) error {
	if addr == "" {
		addr = DefaultPprofAddr
	}
	if pprofLn != nil {
		_ = pprofLn.Close()
		pprofLn = nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("pprof listen %s: %w", addr, err)
	}
	pprofLn = ln
	logger := globalLogger.With(slog.String("component", CompMain))
	logger.Info("pprof_server_start", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := http.Serve(ln, nil); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Error("pprof_server_error", slog.String("error", err.Error()))
		}
	}()
	return nil
}
