//go:build !windows

package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syftbox-desktop/internal/procgroup"
)

func writeWorker(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestWorkerCrashExitsShellWithItsCode(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("WORKER_OUT", out)

	f := newFixture(t)
	f.l.cfg.Binary = writeWorker(t, `printf '%s\n' "$@" > "$WORKER_OUT"; echo "$SYFTBOX_DESKTOP_BINARIES_PATH" >> "$WORKER_OUT"; exit 7`)
	f.l.cfg.BinDir = filepath.Dir(f.l.cfg.Binary)
	f.l.spawn = f.l.spawnWorker

	h, err := f.l.Launch(context.Background(), testParams, false)
	require.NoError(t, err)
	assert.Equal(t, []int{h.Pgid()}, f.reaper.targets)

	select {
	case code := <-f.exits:
		assert.Equal(t, 7, code)
	case <-time.After(5 * time.Second):
		t.Fatal("crash not reported")
	}
	assert.Equal(t, CrashTitle+": "+CrashMessage, <-f.dialogs.fatal)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Equal(t, []string{
		"daemon", "--http-addr", "127.0.0.1:7938", "--http-token", testParams.Token,
		f.l.cfg.BinDir,
	}, lines)
}

func TestStopTerminatesWorkerGroupQuietly(t *testing.T) {
	f := newFixture(t)
	f.l.cfg.Binary = writeWorker(t, "exec sleep 60")
	f.l.spawn = f.l.spawnWorker

	h, err := f.l.Launch(context.Background(), testParams, false)
	require.NoError(t, err)
	require.True(t, procgroup.GroupAlive(h.Pgid()))

	f.l.Stop()

	assert.True(t, h.Exited())
	assert.False(t, procgroup.GroupAlive(h.Pgid()))
	select {
	case <-f.dialogs.fatal:
		t.Fatal("requested stop reported as crash")
	case <-time.After(200 * time.Millisecond):
	}
}
