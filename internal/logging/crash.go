package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// AppendCrash writes a panic record straight to the log file, bypassing
// logrus so it still works when the logger was never set up.
func AppendCrash(dir, where string, r any) {
	if dir == "" {
		if d, err := DefaultDir(); err == nil {
			dir = d
		}
	}
	_ = os.MkdirAll(dir, 0o755)
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Panicked in %s: %v\n%s", where, r, debug.Stack())
		return
	}
	defer f.Close()
	_, _ = fmt.Fprintf(f, "%s Panicked in %s: %v\n%s\n", timestamp(), where, r, debug.Stack())
}

// Recover is deferred at the top of supervised goroutines. It records the
// panic and lets the goroutine end instead of taking the process down.
func Recover(log logrus.FieldLogger, dir, where string) {
	if r := recover(); r != nil {
		AppendCrash(dir, where, r)
		if log != nil {
			log.WithField("panic", r).Errorf("recovered panic in %s", where)
		}
	}
}
