package updates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type installFixture struct {
	*checkerFixture
	exe      string
	restarts int
	inst     *Installer
}

func newInstallFixture(t *testing.T) *installFixture {
	f := &installFixture{checkerFixture: newCheckerFixture(t)}
	f.exe = filepath.Join(t.TempDir(), "syftbox-desktop")
	require.NoError(t, os.WriteFile(f.exe, []byte("old build"), 0o755))
	f.inst = NewInstaller(f.src, f.state, quietLogger(), t.TempDir(), []string{f.exe}, func() error {
		f.restarts++
		return nil
	})
	return f
}

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func (f *installFixture) offer(rel *Release) {
	f.src.set(rel, nil)
	f.checker.Check(context.Background(), false)
}

func TestRespondWithoutPendingIsNoop(t *testing.T) {
	f := newInstallFixture(t)

	require.NoError(t, f.inst.Respond(context.Background(), true))
	require.NoError(t, f.inst.Respond(context.Background(), false))

	assert.Empty(t, f.pub.all())
	assert.Empty(t, f.state.SuppressedVersion())
	assert.Equal(t, 0, f.restarts)
}

func TestInstallReportsProgressSwapsBinaryAndRestarts(t *testing.T) {
	f := newInstallFixture(t)
	f.src.payload = []byte("new build")
	f.src.chunks = [][2]int64{{0, 1000}, {500, 1000}, {504, 1000}, {990, 1000}, {1000, 1000}}
	rel := release("2.0.0")
	rel.Artifact.SHA256 = sum(f.src.payload)
	f.offer(rel)

	require.NoError(t, f.inst.Respond(context.Background(), true))

	var progress []int
	for _, s := range f.pub.all() {
		if s.Phase == PhaseDownloading {
			progress = append(progress, s.Progress)
			assert.Equal(t, "2.0.0", s.Version)
		}
	}
	assert.Equal(t, []int{0, 50, 99, 100}, progress)

	got, err := os.ReadFile(f.exe)
	require.NoError(t, err)
	assert.Equal(t, "new build", string(got))
	old, err := os.ReadFile(f.exe + ".old")
	require.NoError(t, err)
	assert.Equal(t, "old build", string(old))
	assert.Equal(t, 1, f.restarts)
	assert.Nil(t, f.state.Pending())
}

func TestInstallChecksumMismatchFails(t *testing.T) {
	f := newInstallFixture(t)
	f.src.payload = []byte("tampered")
	rel := release("2.0.0")
	rel.Artifact.SHA256 = sum([]byte("expected"))
	f.offer(rel)

	err := f.inst.Respond(context.Background(), true)
	assert.ErrorIs(t, err, ErrChecksum)

	last := f.state.WindowState()
	assert.Equal(t, PhaseFailed, last.Phase)
	assert.True(t, strings.HasPrefix(last.Error, "Failed to download and install update.\nPlease try again later.\n\nError: "))
	got, _ := os.ReadFile(f.exe)
	assert.Equal(t, "old build", string(got))
	assert.Equal(t, 0, f.restarts)
	assert.Empty(t, f.state.SuppressedVersion(), "a failed install is not a decline")
}

func TestInstallDownloadErrorFails(t *testing.T) {
	f := newInstallFixture(t)
	f.src.dlErr = errors.New("connection reset")
	f.offer(release("2.0.0"))

	err := f.inst.Respond(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, f.state.WindowState().Phase)
	assert.Contains(t, f.state.WindowState().Error, "connection reset")
}

func TestRestartFailureIsReported(t *testing.T) {
	f := newInstallFixture(t)
	f.src.payload = []byte("new build")
	f.inst.restart = func() error { return errors.New("exec format error") }
	f.offer(release("2.0.0"))

	err := f.inst.Respond(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, f.state.WindowState().Phase)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "syftbox.tar.gz", artifactName("https://x.example/a/syftbox.tar.gz?sig=1"))
	assert.Equal(t, "update", artifactName("https://x.example/"))
}
