package main

import (
	"os"
	"path/filepath"
	"strings"
)

// autostartName identifies the login item on every platform.
const autostartName = "SyftBox"

// autostartExecutable is the binary registered as a login item.
func autostartExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.Abs(exe)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return stableExecutable(exe), nil
}

// stableExecutable swaps a `wails dev` build (*-dev) for the built binary in
// the same directory when there is one; the dev build does not start on its
// own at login.
func stableExecutable(exe string) string {
	ext := filepath.Ext(exe)
	base := strings.TrimSuffix(filepath.Base(exe), ext)
	if !strings.HasSuffix(strings.ToLower(base), "-dev") {
		return exe
	}
	stable := filepath.Join(filepath.Dir(exe), base[:len(base)-len("-dev")]+ext)
	if st, err := os.Stat(stable); err == nil && !st.IsDir() {
		return stable
	}
	return exe
}

// quotedCommand is exe as a single command-line token.
func quotedCommand(exe string) string {
	return `"` + exe + `"`
}
