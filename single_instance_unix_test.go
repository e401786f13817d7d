//go:build !windows

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondAcquireIsSecondary(t *testing.T) {
	isolateCacheDir(t)
	const id = "SyftBoxDesktopLockTest"

	primary, release, err := tryAcquireSingleInstance(id)
	require.NoError(t, err)
	require.True(t, primary)

	again, _, err := tryAcquireSingleInstance(id)
	require.NoError(t, err)
	assert.False(t, again)

	release()
	after, releaseAfter, err := tryAcquireSingleInstance(id)
	require.NoError(t, err)
	assert.True(t, after)
	releaseAfter()
}
