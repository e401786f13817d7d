package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateCacheDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("LocalAppData", dir)
}

func TestNotifyReachesRunningInstance(t *testing.T) {
	isolateCacheDir(t)
	const id = "SyftBoxDesktopTest"

	ln, cleanup, err := startInstanceIPC(id)
	require.NoError(t, err)
	defer cleanup()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		got <- string(b)
	}()

	require.NoError(t, notifyExistingInstance(id))
	select {
	case msg := <-got:
		assert.Equal(t, showCommand, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("running instance was not notified")
	}
}

func TestNotifyWithoutInstanceFails(t *testing.T) {
	isolateCacheDir(t)
	assert.Error(t, notifyExistingInstance("NobodyHome"))
}

func TestSanitizeInstanceName(t *testing.T) {
	assert.Equal(t, "a_b_c_d", sanitizeInstanceName("a/b:c d"))
	assert.Equal(t, "app", sanitizeInstanceName("  "))
}
