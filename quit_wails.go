package main

import (
	"context"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

func quitApp(ctx context.Context) {
	wailsruntime.Quit(ctx)
}

func showWindow(ctx context.Context) {
	wailsruntime.WindowShow(ctx)
	wailsruntime.WindowUnminimise(ctx)
	// Briefly pinning the window on top makes it come to the front more reliably.
	wailsruntime.WindowSetAlwaysOnTop(ctx, true)
	wailsruntime.WindowSetAlwaysOnTop(ctx, false)
}

func refreshMenu(ctx context.Context) {
	wailsruntime.MenuUpdateApplicationMenu(ctx)
}
