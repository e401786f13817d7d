package sidecar

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/procgroup"
)

// Attacher registers process groups that must not outlive the shell.
type Attacher interface {
	Attach(targets ...int) error
}

// Reaper hands process groups to a detached process-wick watchdog, which
// terminates them once the shell is gone, however it died.
type Reaper struct {
	Binary string
	// Parent is the pid the watchdog waits on; zero means this process.
	Parent int
	Log    logrus.FieldLogger
}

func (r *Reaper) Attach(targets ...int) error {
	if len(targets) == 0 {
		return errors.New("no process groups to watch")
	}
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if t <= 1 {
			return fmt.Errorf("invalid process group %d", t)
		}
		ids = append(ids, strconv.Itoa(t))
	}
	parent := r.Parent
	if parent == 0 {
		parent = os.Getpid()
	}

	cmd := exec.Command(r.Binary, "--targets", strings.Join(ids, ","), "--parent", strconv.Itoa(parent))
	procgroup.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start watchdog %s: %w", r.Binary, err)
	}
	if r.Log != nil {
		r.Log.Infof("watchdog pid %d attached to %s", cmd.Process.Pid, strings.Join(ids, ","))
	}
	// The watchdog normally outlives us; if it exits first, reap it.
	go func() { _ = cmd.Wait() }()
	return nil
}
