package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/asheshgoplani/ogle/internal/config"
	"github.com/asheshgoplani/ogle/internal/input"
	"github.com/asheshgoplani/ogle/internal/logging"
	"github.com/asheshgoplani/ogle/internal/paint"
	"github.com/asheshgoplani/ogle/internal/process"
	"github.com/asheshgoplani/ogle/internal/runner"
	"github.com/asheshgoplani/ogle/internal/sys"
	"github.com/asheshgoplani/ogle/internal/watch"
)

const exitUnset = -1

var mainLog = logging.ForComponent(logging.CompMain)

// flags holds the raw command line values. Only flags the user actually set
// override the config file.
type flags struct {
	configPath   string
	period       int
	refresh      time.Duration
	untilSuccess bool
	untilFailure bool
	pty          bool
	watch        []string
	debug        bool
}

type app struct {
	flags flags
	code  int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ogle [flags] [--] command [args...]",
		Short: "Run a command repeatedly and show its output only when it changes",
		Long: `ogle runs a command over and over. Output is printed the first time and
then only when it differs from the previous run; in between, a status line
shows progress and the countdown to the next run.

Keys: q or Ctrl-D quits after the current run, k or Ctrl-C kills it.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}
	root.Flags().SetInterspersed(false)

	f := &a.flags
	root.Flags().StringVar(&f.configPath, "config", "", "config file (default ~/.ogle/config.toml)")
	root.Flags().IntVarP(&f.period, "period", "p", 1, "seconds to sleep between runs")
	root.Flags().DurationVar(&f.refresh, "refresh", 250*time.Millisecond, "status line refresh interval")
	root.Flags().BoolVarP(&f.untilSuccess, "until-success", "z", false, "stop once the command exits 0")
	root.Flags().BoolVarP(&f.untilFailure, "until-failure", "e", false, "stop once the command exits non-zero")
	root.Flags().BoolVar(&f.pty, "pty", false, "run the command on a pseudo-terminal")
	root.Flags().StringArrayVarP(&f.watch, "watch", "w", nil, "wake early when this path changes (repeatable)")
	root.Flags().BoolVar(&f.debug, "debug", false, "write a debug log to ~/.ogle/debug.log (also OGLE_DEBUG)")
	root.MarkFlagsMutuallyExclusive("until-success", "until-failure")

	root.AddCommand(newVersionCmd())
	return root
}

// settings merges the config file with the flags the user set.
func settings(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	fs := cmd.Flags()
	if fs.Changed("period") {
		cfg.Run.PeriodSecs = f.period
	}
	if fs.Changed("refresh") {
		cfg.Run.RefreshMS = int(f.refresh / time.Millisecond)
	}
	if fs.Changed("until-success") {
		cfg.Run.UntilSuccess = f.untilSuccess
		if f.untilSuccess {
			cfg.Run.UntilFailure = false
		}
	}
	if fs.Changed("until-failure") {
		cfg.Run.UntilFailure = f.untilFailure
		if f.untilFailure {
			cfg.Run.UntilSuccess = false
		}
	}
	if fs.Changed("pty") {
		cfg.Run.PTY = f.pty
	}
	if fs.Changed("watch") {
		cfg.Run.Watch = f.watch
	}
	if f.debug || os.Getenv("OGLE_DEBUG") != "" {
		cfg.Logs.Debug = true
	}
	return cfg, cfg.Validate()
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd, a.flags)
	if err != nil {
		return err
	}

	logDir, dirErr := config.Dir()
	if dirErr == nil {
		if err := logging.Init(cfg.Logs.Logging(false, logDir)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log disabled: %v\n", err)
		}
		defer logging.Shutdown()
		log.SetOutput(logging.NewBridgeWriter(logging.CompMain))
		stopDump := dumpOnSignal(logDir)
		defer stopDump()
		defer func() {
			if r := recover(); r != nil {
				dumpPath := filepath.Join(logDir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
				_ = logging.DumpRingBuffer(dumpPath)
				mainLog.Error("panic", slog.Any("value", r), slog.String("stack", string(debug.Stack())))
				panic(r)
			}
		}()
	}

	c := process.NewCmd(args...)
	mainLog.Info("ogle_started",
		slog.Int("pid", os.Getpid()),
		slog.String("cmd", c.String()),
		slog.Int("period_secs", cfg.Run.PeriodSecs),
		slog.Bool("pty", cfg.Run.PTY))

	out := paint.NewTerminal(os.Stdout)
	width := (&sys.Real{Out: os.Stdout}).Width()

	var spawner process.Spawner = process.ExecSpawner{}
	if cfg.Run.PTY {
		spawner = process.PTYSpawner{Cols: width}
	}

	deps := runner.Deps{
		API:  sys.NewReal(spawner),
		Sink: out,
	}

	ctx := cmd.Context()
	if input.IsTerminal(os.Stdin) {
		keys, err := input.OpenTerminal(os.Stdin)
		if err != nil {
			mainLog.Warn("raw_mode_failed", slog.String("error", err.Error()))
		} else {
			defer func() { _ = keys.Restore() }()
			out.SetRaw(true)
			deps.Actions = keys.Listen(ctx)
		}
	}

	if len(cfg.Run.Watch) > 0 {
		w, err := newWatcher(cfg.Run)
		if err != nil {
			return err
		}
		go w.Start()
		defer w.Stop()
		deps.Wake = w.Changes()
	}

	code, err := runner.Run(ctx, runner.Options{
		Cmd:          c,
		Period:       cfg.Run.Period(),
		Refresh:      cfg.Run.Refresh(),
		UntilSuccess: cfg.Run.UntilSuccess,
		UntilFailure: cfg.Run.UntilFailure,
	}, deps)
	a.code = code
	return err
}

// newWatcher watches the configured paths. Wake-ups are spaced at least one
// period apart so a noisy tree cannot keep the command running back to back.
func newWatcher(run config.RunSettings) (*watch.Watcher, error) {
	minInterval := run.Period()
	if minInterval <= 0 {
		minInterval = watch.DefaultDebounce
	}
	return watch.New(run.Watch, watch.DefaultDebounce, minInterval)
}
