//go:build !windows

package procgroup

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopKillsWholeGroup(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	Configure(cmd)
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	pgid := cmd.Process.Pid
	require.True(t, GroupAlive(pgid))

	assert.True(t, Stop(pgid, time.Second))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("leader did not exit")
	}
	assert.Eventually(t, func() bool { return !GroupAlive(pgid) }, 3*time.Second, 20*time.Millisecond)
}

func TestSignalGroupRefusesInit(t *testing.T) {
	assert.Error(t, Terminate(1))
	assert.Error(t, Kill(0))
	assert.False(t, GroupAlive(1))
}

func TestTerminateMissingGroupIsNotAnError(t *testing.T) {
	cmd := exec.Command("true")
	Configure(cmd)
	require.NoError(t, cmd.Run())
	assert.NoError(t, Terminate(cmd.Process.Pid))
	assert.False(t, ProcessAlive(cmd.Process.Pid))
}
