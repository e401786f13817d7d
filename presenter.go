package main

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"syftbox-desktop/internal/sidecar"
	"syftbox-desktop/internal/updates"
)

const updateWindowEvent = "update-window-state"

// presenter is the UI side of the supervisor: blocking dialogs for the
// launcher and crash monitor, and update-window events for the updater.
// Calls made before the Wails context exists are only logged.
type presenter struct {
	log logrus.FieldLogger

	mu  sync.RWMutex
	ctx context.Context

	shown     bool
	lastPhase updates.Phase
	lastVer   string
}

func newPresenter(log logrus.FieldLogger) *presenter {
	return &presenter{log: log}
}

func (p *presenter) setContext(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

func (p *presenter) context() context.Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctx
}

func (p *presenter) ConfirmPortRetry(port string) (quit bool) {
	ctx := p.context()
	if ctx == nil {
		p.log.Errorf("port %s in use and no window to ask, quitting", port)
		return true
	}
	choice, err := wailsruntime.MessageDialog(ctx, portRetryDialog(port))
	if err != nil {
		p.log.Errorf("port dialog: %v", err)
		return true
	}
	p.log.Infof("port dialog answered %q", choice)
	return isQuitChoice(choice)
}

func portRetryDialog(port string) wailsruntime.MessageDialogOptions {
	msg := sidecar.PortInUseMessage(port)
	opts := wailsruntime.MessageDialogOptions{
		Type:          wailsruntime.QuestionDialog,
		Title:         sidecar.PortInUseTitle,
		Message:       msg,
		Buttons:       []string{"Quit", "Try Again"},
		DefaultButton: "Try Again",
		CancelButton:  "Quit",
	}
	// Windows question dialogs only offer Yes/No.
	if runtime.GOOS == "windows" {
		opts.Message = msg + "\n\nTry again?"
	}
	return opts
}

// isQuitChoice maps a dialog answer onto quit/retry. A dismissed dialog
// counts as quit.
func isQuitChoice(choice string) bool {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "try again", "yes", "ok", "retry":
		return false
	default:
		return true
	}
}

func (p *presenter) ShowFatalError(title, message string) {
	ctx := p.context()
	if ctx == nil {
		p.log.Errorf("%s: %s", title, message)
		return
	}
	_, _ = wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:    wailsruntime.ErrorDialog,
		Title:   title,
		Message: message,
	})
}

func (p *presenter) PublishWindowState(ws updates.WindowState) {
	ctx := p.context()
	if ctx == nil {
		return
	}
	wailsruntime.EventsEmit(ctx, updateWindowEvent, ws)
	if p.shouldShow(ws) {
		showWindow(ctx)
	}
}

// shouldShow reports whether ws starts a new step of the update flow.
// Progress ticks within a download only refresh the page.
func (p *presenter) shouldShow(ws updates.WindowState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown && ws.Phase == p.lastPhase && ws.Version == p.lastVer {
		return false
	}
	p.shown = true
	p.lastPhase = ws.Phase
	p.lastVer = ws.Version
	return true
}
