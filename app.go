package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/config"
	"syftbox-desktop/internal/logging"
	"syftbox-desktop/internal/sidecar"
	"syftbox-desktop/internal/updates"
)

// App is bound to the frontend. It owns the worker launcher and the updater.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.Config
	cfgPath string
	live    *config.Live
	log     *logrus.Logger
	logDir  string
	exit    func(int)

	presenter *presenter
	state     *updates.State
	checker   *updates.Checker
	installer *updates.Installer
	launcher  *sidecar.Launcher
	workerOut io.Closer
	watcher   *config.Watcher

	paramsMu sync.RWMutex
	params   sidecar.ConnectionParams

	ipcOnce     sync.Once
	ipcListener net.Listener
}

func NewApp(cfg *config.Config, cfgPath string, log *logrus.Logger, logDir string, exit func(int)) *App {
	a := &App{
		cfg:       cfg,
		cfgPath:   cfgPath,
		live:      config.NewLive(cfg),
		log:       log,
		logDir:    logDir,
		exit:      exit,
		presenter: newPresenter(logging.Component(log, "ui")),
	}

	a.state = updates.NewState(Version, a.presenter)
	source := &updates.HTTPSource{
		Endpoint:        cfg.Updates.Endpoint,
		CurrentVersion:  Version,
		CheckTimeout:    cfg.Updates.CheckTimeout,
		DownloadTimeout: cfg.Updates.DownloadTimeout,
		Log:             logging.Component(log, "updates"),
	}
	a.checker = updates.NewChecker(source, a.state, logging.Component(log, "updates"), logDir)

	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil {
			exe = resolved
		}
	}
	binDir, err := sidecar.ExecutableDir()
	if err != nil {
		binDir = filepath.Dir(exe)
	}
	daemonBin := sidecar.ResolveBinary(cfg.Daemon.Binary, binDir)
	watchdogBin := sidecar.ResolveBinary(cfg.Daemon.WatchdogBinary, binDir)

	targets := installTargets(exe, binDir, daemonBin, watchdogBin)
	a.installer = updates.NewInstaller(source, a.state, logging.Component(log, "updates"), updateCacheDir(), targets, func() error {
		return restartSelf(a.ctx, exe)
	})

	sidecarLog := logging.Component(log, "sidecar")
	workerOut := log.WithField(logging.ComponentKey, "syftboxd").WriterLevel(logrus.InfoLevel)
	a.workerOut = workerOut
	monitor := sidecar.NewCrashMonitor(a.presenter, exit, sidecarLog, logDir)
	reaper := &sidecar.Reaper{
		Binary: watchdogBin,
		Log:    sidecarLog,
	}
	a.launcher = sidecar.NewLauncher(sidecar.LaunchConfig{
		Binary: daemonBin,
		BinDir: binDir,
		Grace: sidecar.GracePolicy{
			Attempts: cfg.Daemon.GraceAttempts,
			Interval: cfg.Daemon.GraceInterval,
		},
		StopTimeout: cfg.Daemon.StopTimeout,
		Output:      workerOut,
	}, a.presenter, reaper, monitor, sidecarLog, exit)
	return a
}

// installTargets lists the files an update replaces: the desktop executable
// and the helpers shipped beside it. Helpers found elsewhere on PATH belong
// to another install and are left alone.
func installTargets(exe, binDir string, helpers ...string) []string {
	targets := []string{exe}
	for _, h := range helpers {
		if h == "" || h == exe || filepath.Dir(h) != filepath.Clean(binDir) {
			continue
		}
		targets = append(targets, h)
	}
	return targets
}

func updateCacheDir() string {
	dir, err := config.AppDataDir()
	if err != nil {
		return filepath.Join(os.TempDir(), config.AppIdentifier, "updates")
	}
	return filepath.Join(dir, "updates")
}

func (a *App) setIPCListener(ln net.Listener) {
	a.ipcListener = ln
}

// startup is called when the app starts. Nothing here may block the UI
// thread: the worker launch can wait on dialogs for as long as the user likes.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.presenter.setContext(ctx)
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.startIPCListener()
	a.startConfigWatcher()

	params, err := connectionParams(a.cfg)
	if err != nil {
		a.log.Errorf("connection params: %v", err)
		a.presenter.ShowFatalError(sidecar.CrashTitle, fmt.Sprintf("Failed to prepare the SyftBox daemon connection.\n\nError: %v", err))
		a.exit(1)
		return
	}
	a.paramsMu.Lock()
	a.params = params
	a.paramsMu.Unlock()
	a.log.Infof("daemon connection %s", params)

	justUpdated := a.detectUpdate()

	if devMode {
		a.log.Info("dev build, attaching to an externally started daemon")
	} else {
		go a.launchDaemon(runCtx, params, justUpdated)
	}
	go a.checker.Run(runCtx, a.live.CheckInterval)
}

func (a *App) detectUpdate() bool {
	dir, err := config.AppDataDir()
	if err != nil {
		a.log.Warnf("version marker: %v", err)
		return false
	}
	previous := config.LastSeenVersion(dir)
	updated, err := config.DetectUpdate(dir, Version)
	if err != nil {
		a.log.Warnf("version marker: %v", err)
	}
	if updated {
		a.log.Infof("first run of version %s (previous %s)", Version, previous)
	}
	return updated
}

func (a *App) launchDaemon(ctx context.Context, params sidecar.ConnectionParams, justUpdated bool) {
	defer logging.Recover(a.log, a.logDir, "daemon launch")

	_, err := a.launcher.Launch(ctx, params, justUpdated)
	switch {
	case err == nil:
	case errors.Is(err, sidecar.ErrQuit), errors.Is(err, sidecar.ErrStopped), errors.Is(err, context.Canceled):
	default:
		a.log.Errorf("daemon launch failed: %v", err)
		a.presenter.ShowFatalError(sidecar.CrashTitle, fmt.Sprintf("Failed to start the SyftBox daemon.\n\nError: %v", err))
		a.exit(1)
	}
}

func (a *App) startConfigWatcher() {
	if a.cfgPath == "" {
		return
	}
	w, err := config.NewWatcher(a.cfgPath, a.reloadConfig)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		a.log.Warnf("config watcher: %v", err)
		return
	}
	a.watcher = w
}

func (a *App) reloadConfig() {
	cfg, err := config.Load(a.cfgPath, devMode)
	if err != nil {
		a.log.Warnf("config reload: %v", err)
		return
	}
	before := a.live.LogLevel()
	a.live.Apply(cfg)
	if level := a.live.LogLevel(); level != before {
		a.log.SetLevel(logging.ParseLevel(level))
		a.log.Infof("log level %s -> %s", before, level)
	}
	a.log.Infof("config reloaded: check interval %s", a.live.CheckInterval())
}

// shutdown stops the worker; the watchdog would do it anyway, but an orderly
// stop lets it flush.
func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.launcher.Stop()
	if a.workerOut != nil {
		_ = a.workerOut.Close()
	}
	if a.ipcListener != nil {
		_ = a.ipcListener.Close()
	}
	a.log.Info("shutdown complete")
}

func (a *App) startIPCListener() {
	if a.ipcListener == nil {
		return
	}
	a.ipcOnce.Do(func() {
		go func() {
			for {
				conn, err := a.ipcListener.Accept()
				if err != nil {
					return
				}
				go a.handleIPCConn(conn)
			}
		}()
	})
}

func (a *App) handleIPCConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	if a.ctx == nil {
		return
	}
	data, _ := io.ReadAll(io.LimitReader(conn, 1024))
	if cmd := strings.TrimSpace(string(data)); cmd != showCommand {
		a.log.Warnf("ignoring instance message %q", cmd)
		return
	}
	showWindow(a.ctx)
}

// DaemonConnection returns how the frontend reaches the worker.
func (a *App) DaemonConnection() sidecar.ConnectionParams {
	a.paramsMu.RLock()
	defer a.paramsMu.RUnlock()
	return a.params
}

func (a *App) GetWindowState() updates.WindowState {
	return a.state.WindowState()
}

// UpdateWindowResponse is the user's answer to an offered update.
func (a *App) UpdateWindowResponse(install bool) error {
	return a.installer.Respond(context.Background(), install)
}

// CheckForUpdates runs a manual check; results arrive as update-window-state
// events.
func (a *App) CheckForUpdates() {
	go func() {
		defer logging.Recover(a.log, a.logDir, "manual update check")
		a.checker.Check(context.Background(), true)
	}()
}

func (a *App) GetVersion() string {
	return Version
}

// Quit stops the worker and exits; closing the window only hides it.
func (a *App) Quit() {
	if a.ctx == nil {
		return
	}
	a.log.Info("quit requested")
	quitApp(a.ctx)
}

func (a *App) IsAutostartEnabled() (bool, error) {
	return autostartEnabled()
}

// SetAutostart registers or removes the desktop app as a login item.
func (a *App) SetAutostart(enable bool) error {
	exe, err := autostartExecutable()
	if err != nil {
		return err
	}
	if err := setAutostart(exe, enable); err != nil {
		a.log.Errorf("autostart %t: %v", enable, err)
		return err
	}
	a.log.Infof("autostart %t (%s)", enable, exe)
	return nil
}
