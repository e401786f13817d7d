// Package sidecar starts the SyftBox worker next to the shell and makes sure
// it never outlives it.
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/procgroup"
)

var (
	ErrQuit           = errors.New("user chose to quit")
	ErrSpawn          = errors.New("failed to spawn worker")
	ErrAlreadyRunning = errors.New("worker already running")
	ErrStopped        = errors.New("launcher stopped")
)

const (
	PortInUseTitle = "SyftBox daemon port in use"
	BinariesEnv    = "SYFTBOX_DESKTOP_BINARIES_PATH"
)

func PortInUseMessage(port string) string {
	return fmt.Sprintf("Syftbox daemon port %s is already in use. Please close the app that is using it and try again.", port)
}

// Dialogs is the part of the UI the launcher needs. Both calls block until
// the user has answered.
type Dialogs interface {
	// ConfirmPortRetry reports true when the user chose to quit.
	ConfirmPortRetry(port string) (quit bool)
	ShowFatalError(title, message string)
}

// GracePolicy is how long to wait for the previous worker to release its
// port right after an update.
type GracePolicy struct {
	Attempts int
	Interval time.Duration
}

type LaunchConfig struct {
	// Binary is the worker executable.
	Binary string
	// BinDir is the shell's own directory, exported to the worker.
	BinDir      string
	Grace       GracePolicy
	StopTimeout time.Duration
	// Output receives the worker's stdout and stderr.
	Output io.Writer
}

type Launcher struct {
	cfg     LaunchConfig
	dialogs Dialogs
	reaper  Attacher
	monitor *CrashMonitor
	log     logrus.FieldLogger
	exit    func(int)

	portInUse func(port string) bool
	sleep     func(ctx context.Context, d time.Duration) error
	spawn     func(params ConnectionParams) (*Handle, error)

	mu        sync.Mutex
	launching bool
	stopped   bool
	handle    *Handle
}

func NewLauncher(cfg LaunchConfig, dialogs Dialogs, reaper Attacher, monitor *CrashMonitor, log logrus.FieldLogger, exit func(int)) *Launcher {
	l := &Launcher{
		cfg:       cfg,
		dialogs:   dialogs,
		reaper:    reaper,
		monitor:   monitor,
		log:       log,
		exit:      exit,
		portInUse: IsPortInUse,
		sleep:     sleepCtx,
	}
	l.spawn = l.spawnWorker
	return l
}

// Launch waits for the port to be free, starts the worker in its own process
// group, attaches the watchdog and hands the worker to the crash monitor.
func (l *Launcher) Launch(ctx context.Context, params ConnectionParams, justUpdated bool) (*Handle, error) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil, ErrStopped
	}
	if l.launching || (l.handle != nil && !l.handle.Exited()) {
		l.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	l.launching = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.launching = false
		l.mu.Unlock()
	}()

	if justUpdated && l.portInUse(params.Port) {
		l.waitAfterUpdate(ctx, params.Port)
	}
	for l.portInUse(params.Port) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.log.Warnf("port %s is in use", params.Port)
		if l.dialogs.ConfirmPortRetry(params.Port) {
			l.log.Info("user chose to quit")
			l.exit(0)
			return nil, ErrQuit
		}
	}

	if l.isStopped() {
		return nil, ErrStopped
	}
	h, err := l.spawn(params)
	if err != nil {
		return nil, err
	}
	if err := l.reaper.Attach(h.Pgid()); err != nil {
		_ = procgroup.Kill(h.Pgid())
		return nil, fmt.Errorf("attach watchdog: %w", err)
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		// Stop ran while the worker was starting and found nothing to stop.
		l.monitor.ExpectExit()
		procgroup.Stop(h.Pgid(), l.cfg.StopTimeout)
		return nil, ErrStopped
	}
	l.handle = h
	l.mu.Unlock()

	l.log.Infof("worker started, pgid %d, %s", h.Pgid(), params)
	l.monitor.Watch(h)
	return h, nil
}

func (l *Launcher) waitAfterUpdate(ctx context.Context, port string) {
	for i := 1; i <= l.cfg.Grace.Attempts; i++ {
		l.log.Infof("port %s still in use after update, waiting (%d/%d)", port, i, l.cfg.Grace.Attempts)
		if err := l.sleep(ctx, l.cfg.Grace.Interval); err != nil {
			return
		}
		if !l.portInUse(port) {
			return
		}
	}
}

func (l *Launcher) spawnWorker(params ConnectionParams) (*Handle, error) {
	cmd := exec.Command(l.cfg.Binary, "daemon", "--http-addr", params.Addr(), "--http-token", params.Token)
	cmd.Env = workerEnv(os.Environ(), l.cfg.BinDir)
	if l.cfg.BinDir != "" {
		cmd.Dir = l.cfg.BinDir
	}
	if l.cfg.Output != nil {
		cmd.Stdout = l.cfg.Output
		cmd.Stderr = l.cfg.Output
	}
	procgroup.Configure(cmd)

	h, err := startHandle(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, filepath.Base(l.cfg.Binary), err)
	}
	return h, nil
}

func (l *Launcher) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Stop shuts the worker down on the shell's request. The crash monitor is
// told first so the exit is not reported as a crash. A launch still in
// progress gives up instead of spawning.
func (l *Launcher) Stop() {
	l.mu.Lock()
	l.stopped = true
	h := l.handle
	l.mu.Unlock()
	if h == nil {
		return
	}
	l.monitor.ExpectExit()
	if h.Exited() {
		return
	}
	if !procgroup.Stop(h.Pgid(), l.cfg.StopTimeout) {
		l.log.Warnf("worker group %d still alive after stop", h.Pgid())
	}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
	}
}

// workerEnv exports the shell directory and appends it to PATH so bundled
// tools are found last.
func workerEnv(base []string, binDir string) []string {
	env := make([]string, 0, len(base)+2)
	pathSet := false
	for _, kv := range base {
		key, val, _ := strings.Cut(kv, "=")
		if envKeyEqual(key, BinariesEnv) {
			continue
		}
		if envKeyEqual(key, "PATH") && !pathSet {
			pathSet = true
			if binDir != "" {
				if val == "" {
					val = binDir
				} else {
					val += string(os.PathListSeparator) + binDir
				}
			}
			env = append(env, key+"="+val)
			continue
		}
		env = append(env, kv)
	}
	if !pathSet && binDir != "" {
		env = append(env, "PATH="+binDir)
	}
	return append(env, BinariesEnv+"="+binDir)
}

func envKeyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
