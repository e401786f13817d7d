package main

import (
	"runtime"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
)

const (
	menuOpen      = "Open SyftBox"
	menuCheck     = "Check for Updates"
	menuAutostart = "Start at Login"
	menuQuit      = "Quit"
)

// applicationMenu is the only way to quit once the window is hidden on close.
func (a *App) applicationMenu() *menu.Menu {
	m := menu.NewMenu()
	var quitKey *keys.Accelerator
	if runtime.GOOS == "darwin" {
		// The app menu already binds Cmd+Q.
		m.Append(menu.AppMenu())
	} else {
		quitKey = keys.CmdOrCtrl("q")
	}

	enabled, err := autostartEnabled()
	if err != nil {
		a.log.Warnf("autostart state: %v", err)
	}

	sub := m.AddSubmenu("SyftBox")
	sub.AddText(menuOpen, nil, func(*menu.CallbackData) {
		if a.ctx != nil {
			showWindow(a.ctx)
		}
	})
	sub.AddText(menuCheck, nil, func(*menu.CallbackData) {
		a.CheckForUpdates()
	})
	sub.AddCheckbox(menuAutostart, enabled, nil, a.toggleAutostart)
	sub.AddSeparator()
	sub.AddText(menuQuit, quitKey, func(*menu.CallbackData) {
		a.Quit()
	})
	return m
}

// toggleAutostart flips the login item from its state on disk.
func (a *App) toggleAutostart(data *menu.CallbackData) {
	on, err := autostartEnabled()
	if err == nil {
		err = a.SetAutostart(!on)
	}
	if err == nil {
		on = !on
	} else {
		a.log.Warnf("toggle autostart: %v", err)
	}
	if data != nil && data.MenuItem != nil {
		data.MenuItem.Checked = on
	}
	if a.ctx != nil {
		refreshMenu(a.ctx)
	}
}
