// Package procgroup starts processes as process-group leaders and signals
// whole groups. On unix a group id is the leader's pid; on Windows the
// leader's pid identifies the process tree.
package procgroup

import "time"

// Stop asks the group to exit, then forcibly kills it if it is still alive
// after grace. It reports whether the group is gone.
func Stop(pgid int, grace time.Duration) bool {
	if !GroupAlive(pgid) {
		return true
	}
	_ = Terminate(pgid)
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !GroupAlive(pgid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = Kill(pgid)
	for i := 0; i < 20; i++ {
		if !GroupAlive(pgid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !GroupAlive(pgid)
}
