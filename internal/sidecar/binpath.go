package sidecar

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ExecutableDir returns the directory holding the running shell binary.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ResolveBinary finds a bundled helper binary. Absolute paths are used as-is;
// otherwise the shell's own directory is tried before PATH. When nothing is
// found the bundled location is returned so that the spawn error names it.
func ResolveBinary(name, dir string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	bundled := filepath.Join(dir, name)
	if st, err := os.Stat(bundled); err == nil && !st.IsDir() {
		return bundled
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return bundled
}
