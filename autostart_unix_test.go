//go:build !windows

package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/menu"

	"syftbox-desktop/internal/config"
)

func TestAutostartFileLocation(t *testing.T) {
	home := isolateUserDirs(t)

	path, err := autostartFile()
	require.NoError(t, err)
	if runtime.GOOS == "darwin" {
		assert.Equal(t, filepath.Join(home, "Library", "LaunchAgents", config.AppIdentifier+".plist"), path)
	} else {
		assert.Equal(t, filepath.Join(home, "config", "autostart", config.AppIdentifier+".desktop"), path)
	}
}

func TestSetAutostartRoundTrip(t *testing.T) {
	isolateUserDirs(t)
	exe := "/opt/SyftBox & Co/syftbox-desktop"

	on, err := autostartEnabled()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, setAutostart(exe, true))
	on, err = autostartEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	path, err := autostartFile()
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	if runtime.GOOS == "darwin" {
		assert.Contains(t, string(body), "<string>/opt/SyftBox &amp; Co/syftbox-desktop</string>")
		assert.Contains(t, string(body), "<key>RunAtLoad</key>")
	} else {
		assert.Contains(t, string(body), `Exec="/opt/SyftBox & Co/syftbox-desktop"`)
	}

	require.NoError(t, setAutostart(exe, false))
	on, err = autostartEnabled()
	require.NoError(t, err)
	assert.False(t, on)
	require.NoError(t, setAutostart(exe, false), "removing twice is fine")
}

func TestDesktopEntry(t *testing.T) {
	entry := desktopEntry("/usr/lib/syftbox/syftbox-desktop")
	assert.Contains(t, entry, "[Desktop Entry]\n")
	assert.Contains(t, entry, "Name=SyftBox\n")
	assert.Contains(t, entry, `Exec="/usr/lib/syftbox/syftbox-desktop"`)
}

func TestMenuTogglesAutostart(t *testing.T) {
	a, _ := newTestApp(t, "")
	item := &menu.MenuItem{Label: menuAutostart, Type: menu.CheckboxType}

	a.toggleAutostart(&menu.CallbackData{MenuItem: item})
	assert.True(t, item.Checked)
	on, err := a.IsAutostartEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	a.toggleAutostart(&menu.CallbackData{MenuItem: item})
	assert.False(t, item.Checked)
	on, err = a.IsAutostartEnabled()
	require.NoError(t, err)
	assert.False(t, on)
}
