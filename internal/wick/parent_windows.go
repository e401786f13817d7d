//go:build windows

package wick

import (
	"syftbox-desktop/internal/procgroup"
)

func watchParent(parent, _ int) func() bool {
	done := make(chan struct{})
	go func() {
		// An error means the process could not be opened, i.e. it is gone.
		_ = procgroup.WaitExit(parent)
		close(done)
	}()
	return func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
