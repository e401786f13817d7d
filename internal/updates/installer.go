package updates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

func installFailedMessage(err error) string {
	return fmt.Sprintf("Failed to download and install update.\nPlease try again later.\n\nError: %v", err)
}

type Installer struct {
	source   Source
	state    *State
	log      logrus.FieldLogger
	cacheDir string
	targets  []string
	restart  func() error
}

// NewInstaller replaces the installed binaries with downloaded releases.
// targets[0] is the desktop executable, followed by the bundled helpers.
// Artifacts are staged under cacheDir; restart is called once the new
// binaries are in place.
func NewInstaller(source Source, state *State, log logrus.FieldLogger, cacheDir string, targets []string, restart func() error) *Installer {
	return &Installer{
		source:   source,
		state:    state,
		log:      log,
		cacheDir: cacheDir,
		targets:  targets,
		restart:  restart,
	}
}

// Respond handles the user's answer to the update window. The pending release
// is consumed either way; without one this is a no-op.
func (i *Installer) Respond(ctx context.Context, install bool) error {
	rel := i.state.TakePending()
	if rel == nil {
		i.log.Debug("update response without a pending update")
		return nil
	}
	if !install {
		i.log.Infof("user declined update %s", rel.Version)
		i.state.Suppress(rel.Version)
		return nil
	}

	i.log.Infof("installing update %s", rel.Version)
	if err := i.install(ctx, rel); err != nil {
		i.log.Errorf("update %s failed: %v", rel.Version, err)
		i.state.Publish(WindowState{
			Phase:          PhaseFailed,
			Version:        rel.Version,
			CurrentVersion: rel.CurrentVersion,
			Error:          installFailedMessage(err),
		})
		return err
	}
	return nil
}

func (i *Installer) install(ctx context.Context, rel *Release) error {
	notes := rel.Notes
	if notes == "" {
		notes = noNotes
	}
	filter := NewProgressFilter(SinkFunc(func(pct int) {
		i.state.Publish(WindowState{
			Phase:          PhaseDownloading,
			Version:        rel.Version,
			CurrentVersion: rel.CurrentVersion,
			ReleaseNotes:   notes,
			Progress:       pct,
		})
	}))

	archive, err := i.download(ctx, rel, filter)
	if err != nil {
		return err
	}
	if err := Apply(archive, i.targets...); err != nil {
		return err
	}
	i.log.Infof("update %s installed, restarting", rel.Version)
	if err := i.restart(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

func (i *Installer) download(ctx context.Context, rel *Release, filter *ProgressFilter) (string, error) {
	dir := filepath.Join(i.cacheDir, sanitizePathPart(rel.Version))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, artifactName(rel.Artifact.URL))
	part := dest + ".partial"
	_ = os.Remove(part)

	f, err := os.Create(part)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	dlErr := i.source.Download(ctx, rel.Artifact, io.MultiWriter(f, h), filter.Observe)
	closeErr := f.Close()
	if dlErr != nil {
		_ = os.Remove(part)
		return "", dlErr
	}
	if closeErr != nil {
		_ = os.Remove(part)
		return "", closeErr
	}

	if want := rel.Artifact.SHA256; want != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(want, got) {
			_ = os.Remove(part)
			return "", fmt.Errorf("%w: expected %s, got %s", ErrChecksum, want, got)
		}
	}
	if err := os.Rename(part, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func artifactName(rawURL string) string {
	name := "update"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	return sanitizePathPart(name)
}

func sanitizePathPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}
