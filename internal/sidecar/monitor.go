package sidecar

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/logging"
)

const (
	CrashTitle   = "Error"
	CrashMessage = "SyftBox daemon exited unexpectedly. Please check the logs for more information."
)

// CrashMonitor turns an unexpected worker exit into one fatal dialog and a
// shell exit with the worker's code. It never restarts the worker.
type CrashMonitor struct {
	dialogs  Dialogs
	exit     func(int)
	log      logrus.FieldLogger
	crashDir string

	stopping atomic.Bool
	once     sync.Once
}

func NewCrashMonitor(dialogs Dialogs, exit func(int), log logrus.FieldLogger, crashDir string) *CrashMonitor {
	return &CrashMonitor{dialogs: dialogs, exit: exit, log: log, crashDir: crashDir}
}

// ExpectExit marks the coming worker exit as requested by the shell.
func (m *CrashMonitor) ExpectExit() {
	m.stopping.Store(true)
}

// Watch waits for h in the background.
func (m *CrashMonitor) Watch(h *Handle) {
	go m.watch(h)
}

func (m *CrashMonitor) watch(h *Handle) {
	defer logging.Recover(m.log, m.crashDir, "crash monitor")

	code := h.Wait()
	if m.stopping.Load() {
		m.log.Infof("worker exited with code %d during shutdown", code)
		return
	}
	m.once.Do(func() {
		m.log.Errorf("worker exited unexpectedly with code %d", code)
		m.dialogs.ShowFatalError(CrashTitle, CrashMessage)
		m.exit(code)
	})
}
