package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/menu"

	"syftbox-desktop/internal/config"
)

// isolateUserDirs points every per-user directory at a fresh temp dir.
func isolateUserDirs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("AppData", filepath.Join(dir, "config"))
	t.Setenv("LocalAppData", filepath.Join(dir, "cache"))
	return dir
}

func newTestApp(t *testing.T, cfgPath string) (*App, *bytes.Buffer) {
	t.Helper()
	dir := isolateUserDirs(t)
	out := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	a := NewApp(config.Default(), cfgPath, log, dir, func(int) {})
	t.Cleanup(func() { _ = a.workerOut.Close() })
	return a, out
}

func submenu(t *testing.T, m *menu.Menu, label string) *menu.Menu {
	t.Helper()
	for _, item := range m.Items {
		if item.Label == label && item.SubMenu != nil {
			return item.SubMenu
		}
	}
	t.Fatalf("no %q submenu", label)
	return nil
}

func TestApplicationMenuOffersQuit(t *testing.T) {
	a, _ := newTestApp(t, "")

	sub := submenu(t, a.applicationMenu(), "SyftBox")
	var labels []string
	var quit *menu.MenuItem
	for _, item := range sub.Items {
		if item.Type == menu.SeparatorType {
			continue
		}
		labels = append(labels, item.Label)
		if item.Label == menuQuit {
			quit = item
		}
	}
	assert.Equal(t, []string{menuOpen, menuCheck, menuAutostart, menuQuit}, labels)

	require.NotNil(t, quit)
	require.NotNil(t, quit.Click)
	// Without a window the click does nothing.
	quit.Click(&menu.CallbackData{MenuItem: quit})
}

func TestQuitWithoutWindowIsNoop(t *testing.T) {
	a, _ := newTestApp(t, "")
	a.Quit()
}

func TestInstallTargetsKeepsBundledHelpersOnly(t *testing.T) {
	bin := filepath.Join("opt", "syftbox")
	exe := filepath.Join(bin, "syftbox-desktop")
	daemon := filepath.Join(bin, "syftboxd")
	wick := filepath.Join(bin, "process-wick")
	elsewhere := filepath.Join("usr", "bin", "syftboxd")

	assert.Equal(t, []string{exe, daemon, wick}, installTargets(exe, bin, daemon, wick))
	assert.Equal(t, []string{exe, wick}, installTargets(exe, bin, elsewhere, wick))
	assert.Equal(t, []string{exe}, installTargets(exe, bin, "", exe))
}

func TestDetectUpdateLogsPreviousVersion(t *testing.T) {
	a, out := newTestApp(t, "")
	dir, err := config.AppDataDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.VersionFileName), []byte("0.9.0\n"), 0o644))

	assert.True(t, a.detectUpdate())
	assert.Contains(t, out.String(), "previous 0.9.0")
	assert.False(t, a.detectUpdate())
}

func TestReloadConfigAppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	a, out := newTestApp(t, path)
	a.log.SetLevel(logrus.InfoLevel)

	cfg := config.Default()
	cfg.Log.Level = "debug"
	require.NoError(t, config.Save(path, cfg))

	a.reloadConfig()
	assert.Equal(t, "debug", a.live.LogLevel())
	assert.Equal(t, logrus.DebugLevel, a.log.GetLevel())
	assert.Contains(t, out.String(), "log level info -> debug")
}
