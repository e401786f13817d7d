package main

import (
	"embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"syftbox-desktop/internal/config"
	"syftbox-desktop/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

const appID = "SyftBoxDesktop"

func main() {
	os.Exit(run())
}

func run() int {
	logDir, err := logging.DefaultDir()
	if err != nil {
		logDir = filepath.Join(os.TempDir(), "syftbox-logs")
	}
	defer func() {
		if r := recover(); r != nil {
			logging.AppendCrash(logDir, "main", r)
			panic(r)
		}
	}()

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		cfgPath = ""
	} else if _, err := config.EnsureFile(cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
	}
	cfg, err := config.Load(cfgPath, devMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		cfg = config.Default()
	}

	log, logFile, err := logging.New(logging.Config{Dir: logDir, Level: cfg.Log.Level, Stdout: os.Stdout})
	if err != nil {
		log.Warnf("file logging disabled: %v", err)
	}
	var closeOnce sync.Once
	closeLog := func() { closeOnce.Do(func() { _ = logFile.Close() }) }
	defer closeLog()
	exit := func(code int) {
		log.Infof("exiting with code %d", code)
		closeLog()
		os.Exit(code)
	}

	exe, _ := os.Executable()
	log.Infof("starting SyftBox Desktop %s exe=%q dev=%v", Version, exe, devMode)

	waitForPredecessor(log)

	// `wails dev` runs a short-lived wailsbindings binary to generate
	// bindings; it must not take the single-instance lock.
	skipSingleInstance := strings.Contains(strings.ToLower(filepath.Base(exe)), "wailsbindings")
	primary, release, err := true, func() {}, error(nil)
	if !skipSingleInstance {
		primary, release, err = tryAcquireSingleInstance(appID)
	}
	if err != nil {
		log.Warnf("single-instance lock: %v", err)
		primary, release = true, func() {}
	} else if !primary {
		log.Info("already running, asking the existing instance to show itself")
		if err := notifyExistingInstance(appID); err != nil {
			log.Warnf("notify existing instance: %v", err)
		}
		return 0
	}
	defer release()

	var ipcLn net.Listener
	if !skipSingleInstance {
		ln, cleanup, err := startInstanceIPC(appID)
		if err != nil {
			log.Warnf("single-instance ipc: %v", err)
		} else {
			ipcLn = ln
			defer cleanup()
		}
	}

	app := NewApp(cfg, cfgPath, log, logDir, exit)
	if ipcLn != nil {
		app.setIPCListener(ipcLn)
	}

	err = wails.Run(&options.App{
		Title:     "SyftBox",
		Width:     1200,
		Height:    720,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Menu:               app.applicationMenu(),
		HideWindowOnClose:  true,
		OnStartup:          app.startup,
		OnShutdown:         app.shutdown,
		Logger:             wailsLogger{entry: log.WithField(logging.ComponentKey, "wails")},
		LogLevel:           wailsLogLevel(log.GetLevel()),
		LogLevelProduction: wailsLogLevel(log.GetLevel()),
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Errorf("wails: %v", err)
		return 1
	}
	return 0
}
