package sidecar

import (
	"os"
	"os/exec"
)

// Handle tracks one spawned worker until it exits.
type Handle struct {
	cmd      *exec.Cmd
	pgid     int
	done     chan struct{}
	exitCode int
}

func startHandle(cmd *exec.Cmd) (*Handle, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	h := &Handle{
		cmd:  cmd,
		pgid: cmd.Process.Pid,
		done: make(chan struct{}),
	}
	go h.wait()
	return h, nil
}

func (h *Handle) wait() {
	_ = h.cmd.Wait()
	h.exitCode = exitCode(h.cmd.ProcessState)
	close(h.done)
}

// Pgid is the worker's process-group id (its pid on Windows).
func (h *Handle) Pgid() int { return h.pgid }

func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the worker has exited and been reaped.
func (h *Handle) Wait() int {
	<-h.done
	return h.exitCode
}

func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// exitCode maps a missing or signal-terminated status to 1.
func exitCode(ps *os.ProcessState) int {
	if ps == nil {
		return 1
	}
	if code := ps.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
