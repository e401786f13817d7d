package main

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/procgroup"
)

// restartPIDEnv tells a freshly started shell to wait for its predecessor to
// exit before taking the single-instance lock.
const restartPIDEnv = "SYFTBOX_DESKTOP_RESTART_PID"

const restartWait = 30 * time.Second

// restartSelf starts exe with the current arguments outside our process tree
// and quits the app. The new process waits for this one to be gone.
func restartSelf(ctx context.Context, exe string) error {
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), restartPIDEnv+"="+strconv.Itoa(os.Getpid()))
	procgroup.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	_ = cmd.Process.Release()
	quitApp(ctx)
	return nil
}

func waitForPredecessor(log logrus.FieldLogger) {
	v := os.Getenv(restartPIDEnv)
	if v == "" {
		return
	}
	_ = os.Unsetenv(restartPIDEnv)
	pid, err := strconv.Atoi(v)
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return
	}
	log.Infof("restarted after update, waiting for pid %d to exit", pid)
	deadline := time.Now().Add(restartWait)
	for procgroup.ProcessAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
}
