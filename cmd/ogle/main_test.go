package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/ogle/internal/config"
	"github.com/asheshgoplani/ogle/internal/watch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSettingsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	a := &app{code: exitUnset}
	root := newRootCmd(a)
	require.NoError(t, root.ParseFlags([]string{"--config", path, "date"}))

	cfg, err := settings(root, a.flags)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Run, cfg.Run)
	assert.Equal(t, []string{"date"}, root.Flags().Args())
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, `
[run]
period_secs = 10
refresh_ms = 500
until_failure = true
`)
	a := &app{code: exitUnset}
	root := newRootCmd(a)
	require.NoError(t, root.ParseFlags([]string{"--config", path, "-p", "3", "-z", "--refresh", "100ms", "-w", "a.go", "-w", "b.go", "make"}))

	cfg, err := settings(root, a.flags)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Run.PeriodSecs)
	assert.Equal(t, 100, cfg.Run.RefreshMS)
	assert.True(t, cfg.Run.UntilSuccess)
	assert.False(t, cfg.Run.UntilFailure, "-z replaces until_failure from the file")
	assert.Equal(t, []string{"a.go", "b.go"}, cfg.Run.Watch)
}

func TestConfigValuesKeptWhenFlagsUnset(t *testing.T) {
	path := writeConfig(t, `
[run]
period_secs = 7
pty = true
`)
	a := &app{code: exitUnset}
	root := newRootCmd(a)
	require.NoError(t, root.ParseFlags([]string{"--config", path, "ls"}))

	cfg, err := settings(root, a.flags)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Run.PeriodSecs)
	assert.True(t, cfg.Run.PTY)
}

func TestSettingsRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	a := &app{code: exitUnset}
	root := newRootCmd(a)
	require.NoError(t, root.ParseFlags([]string{"--config", path, "-p", "-1", "ls"}))

	_, err := settings(root, a.flags)
	assert.Error(t, err)
}

func TestCommandArgsAreNotParsedAsFlags(t *testing.T) {
	a := &app{code: exitUnset}
	root := newRootCmd(a)
	require.NoError(t, root.ParseFlags([]string{"-p", "2", "ls", "-l", "-p"}))
	assert.Equal(t, []string{"ls", "-l", "-p"}, root.Flags().Args())
	assert.Equal(t, 2, a.flags.period)
}

func TestRootRequiresCommand(t *testing.T) {
	root := newRootCmd(&app{code: exitUnset})
	root.SetArgs([]string{})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRootRejectsBothStopConditions(t *testing.T) {
	root := newRootCmd(&app{code: exitUnset})
	root.SetArgs([]string{"-z", "-e", "true"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "until-success")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&app{code: exitUnset})
	root.SetArgs([]string{"version"})
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "ogle "), out.String())
}

func TestVersionFromLdflags(t *testing.T) {
	old := version
	version = "v1.2.3"
	t.Cleanup(func() { version = old })
	assert.Equal(t, "v1.2.3", currentVersion())
}

func TestWatcherSpacedByPeriod(t *testing.T) {
	dir := t.TempDir()

	w, err := newWatcher(config.RunSettings{PeriodSecs: 5, Watch: []string{dir}})
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	assert.Equal(t, rate.Every(5*time.Second), w.Limit())

	w0, err := newWatcher(config.RunSettings{PeriodSecs: 0, Watch: []string{dir}})
	require.NoError(t, err)
	t.Cleanup(w0.Stop)
	assert.Equal(t, rate.Every(watch.DefaultDebounce), w0.Limit())
	assert.NotEqual(t, rate.Inf, w0.Limit())
}
