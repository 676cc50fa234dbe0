// Package config loads ogle's settings from ~/.ogle/config.toml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/asheshgoplani/ogle/internal/logging"
)

var configLog = logging.ForComponent(logging.CompConfig)

const (
	// DirName is the directory under $HOME holding config and logs.
	DirName = ".ogle"
	// FileName is the config file inside DirName.
	FileName = "config.toml"

	// MinRefresh is the fastest accepted status refresh.
	MinRefresh = 10 * time.Millisecond
)

// ErrConflictingStop is returned when both stop conditions are requested.
var ErrConflictingStop = errors.New("until-success and until-failure are mutually exclusive")

// Config is the complete configuration.
type Config struct {
	Run  RunSettings `toml:"run"`
	Logs LogSettings `toml:"logs"`
}

// RunSettings controls how the command is repeated.
type RunSettings struct {
	// PeriodSecs is the pause between runs.
	// Default: 1
	PeriodSecs int `toml:"period_secs"`

	// RefreshMS is the status line refresh interval.
	// Default: 250
	RefreshMS int `toml:"refresh_ms"`

	// UntilSuccess stops after the first run exiting with 0.
	UntilSuccess bool `toml:"until_success"`

	// UntilFailure stops after the first run exiting with non-zero.
	UntilFailure bool `toml:"until_failure"`

	// PTY runs the command on a pseudo-terminal.
	PTY bool `toml:"pty"`

	// Watch lists paths whose changes cut the sleep short.
	Watch []string `toml:"watch"`
}

// LogSettings controls the debug log. Nothing is logged unless Debug is set
// or OGLE_DEBUG is present in the environment.
type LogSettings struct {
	Debug bool `toml:"debug"`

	// DebugLevel sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "debug"
	DebugLevel string `toml:"debug_level"`

	// DebugFormat sets the log format: "json" (default) or "text"
	DebugFormat string `toml:"debug_format"`

	// DebugMaxMB is the max size in MB for debug.log before rotation
	// Default: 10
	DebugMaxMB int `toml:"debug_max_mb"`

	// DebugBackups is the number of rotated debug.log files to keep
	// Default: 5
	DebugBackups int `toml:"debug_backups"`

	// DebugRetentionDays is the number of days to keep rotated debug logs
	// Default: 10
	DebugRetentionDays int `toml:"debug_retention_days"`

	// DebugCompress enables gzip compression for rotated debug logs
	DebugCompress bool `toml:"debug_compress"`

	// RingBufferMB is the in-memory ring buffer size in MB for crash dumps
	// Default: 1
	RingBufferMB int `toml:"ring_buffer_mb"`

	// AggregateIntervalS is how often batched tick/line counters are logged
	// Default: 30
	AggregateIntervalS int `toml:"aggregate_interval_secs"`

	// PprofEnabled serves pprof while debugging
	PprofEnabled bool `toml:"pprof_enabled"`

	// PprofAddr is the pprof listen address
	// Default: "localhost:6060"
	PprofAddr string `toml:"pprof_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Run: RunSettings{
			PeriodSecs: 1,
			RefreshMS:  250,
		},
		Logs: LogSettings{
			DebugLevel:         "debug",
			DebugFormat:        "json",
			DebugMaxMB:         10,
			DebugBackups:       5,
			DebugRetentionDays: 10,
			DebugCompress:      true,
			RingBufferMB:       1,
			AggregateIntervalS: 30,
		},
	}
}

// Dir returns ~/.ogle.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// DefaultPath returns ~/.ogle/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Default(), fmt.Errorf("config.toml parse error: %w", err)
	}
	for _, key := range md.Undecoded() {
		configLog.Warn("config_unknown_key",
			slog.String("path", path),
			slog.String("key", key.String()))
	}
	return cfg, nil
}

// Period returns the pause between runs.
func (r RunSettings) Period() time.Duration {
	return time.Duration(r.PeriodSecs) * time.Second
}

// Refresh returns the status refresh interval.
func (r RunSettings) Refresh() time.Duration {
	return time.Duration(r.RefreshMS) * time.Millisecond
}

// Validate checks the run settings for values the run loop cannot honor.
func (c Config) Validate() error {
	if c.Run.PeriodSecs < 0 {
		return fmt.Errorf("invalid period %ds: must not be negative", c.Run.PeriodSecs)
	}
	if c.Run.Refresh() < MinRefresh {
		return fmt.Errorf("invalid refresh %dms: must be at least %s", c.Run.RefreshMS, MinRefresh)
	}
	if c.Run.UntilSuccess && c.Run.UntilFailure {
		return ErrConflictingStop
	}
	return nil
}

// Logging converts the log settings for logging.Init. debug forces debug
// logging on; logDir is where debug.log goes.
func (l LogSettings) Logging(debug bool, logDir string) logging.Config {
	return logging.Config{
		Debug:                 debug || l.Debug,
		LogDir:                logDir,
		Level:                 l.DebugLevel,
		Format:                l.DebugFormat,
		MaxSizeMB:             l.DebugMaxMB,
		MaxBackups:            l.DebugBackups,
		MaxAgeDays:            l.DebugRetentionDays,
		Compress:              l.DebugCompress,
		RingBufferSize:        l.RingBufferMB * 1024 * 1024,
		AggregateIntervalSecs: l.AggregateIntervalS,
		PprofEnabled:          l.PprofEnabled,
		PprofAddr:             l.PprofAddr,
	}
}
