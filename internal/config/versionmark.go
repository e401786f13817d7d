package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppIdentifier names the per-user data directory.
	AppIdentifier = "org.openmined.syftbox.desktop"
	// VersionFileName records the last version that ran on this machine.
	VersionFileName = "desktop_version.txt"

	unknownVersion = "0.0.0"
)

// AppDataDir returns the per-user data directory for the shell.
func AppDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve app data directory: %w", err)
	}
	return filepath.Join(dir, AppIdentifier), nil
}

// DetectUpdate compares current against the version recorded in dir and
// records current when they differ. A missing record reads as "0.0.0", so a
// first install also counts as just-updated. The returned error only reports
// a failure to persist the new version; updated is valid either way.
func DetectUpdate(dir, current string) (updated bool, err error) {
	path := filepath.Join(dir, VersionFileName)
	previous := unknownVersion
	if b, readErr := os.ReadFile(path); readErr == nil {
		previous = strings.TrimSpace(string(b))
	}
	if previous == current {
		return false, nil
	}
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return true, fmt.Errorf("create app data dir %s: %w", dir, mkErr)
	}
	if writeErr := os.WriteFile(path, []byte(current), 0o644); writeErr != nil {
		return true, fmt.Errorf("write version to %s: %w", path, writeErr)
	}
	return true, nil
}

// LastSeenVersion returns the recorded version, or "0.0.0" when nothing is
// recorded yet.
func LastSeenVersion(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, VersionFileName))
	if err != nil {
		return unknownVersion
	}
	return strings.TrimSpace(string(b))
}
