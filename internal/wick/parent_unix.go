//go:build !windows

package wick

import (
	"os"

	"syftbox-desktop/internal/procgroup"
)

// watchParent reports the parent as gone once it no longer exists or, when
// it was our real parent, once we have been re-parented away from it.
func watchParent(parent, startPpid int) func() bool {
	return func() bool {
		if !procgroup.ProcessAlive(parent) {
			return true
		}
		return parent == startPpid && os.Getppid() != startPpid
	}
}
