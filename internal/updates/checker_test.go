package updates

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []WindowState
}

func (r *recorder) PublishWindowState(ws WindowState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ws)
}

func (r *recorder) all() []WindowState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WindowState(nil), r.states...)
}

func (r *recorder) phases() []Phase {
	var out []Phase
	for _, s := range r.all() {
		out = append(out, s.Phase)
	}
	return out
}

type fakeSource struct {
	mu        sync.Mutex
	rel       *Release
	err       error
	panicNext bool
	checks    atomic.Int32

	payload []byte
	chunks  [][2]int64
	dlErr   error
}

func (f *fakeSource) set(rel *Release, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rel, f.err = rel, err
}

func (f *fakeSource) Latest(context.Context) (*Release, error) {
	f.checks.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicNext {
		f.panicNext = false
		panic("manifest parser exploded")
	}
	if f.rel == nil {
		return nil, f.err
	}
	rel := *f.rel
	return &rel, f.err
}

func (f *fakeSource) Download(_ context.Context, _ Artifact, dst io.Writer, onChunk func(int64, int64)) error {
	if f.dlErr != nil {
		return f.dlErr
	}
	if _, err := dst.Write(f.payload); err != nil {
		return err
	}
	for _, c := range f.chunks {
		onChunk(c[0], c[1])
	}
	return nil
}

func release(v string) *Release {
	return &Release{
		Version:        v,
		CurrentVersion: "1.0.0",
		Notes:          "notes for " + v,
		Artifact:       Artifact{URL: "https://downloads.example/syftbox-desktop"},
	}
}

type checkerFixture struct {
	src     *fakeSource
	pub     *recorder
	state   *State
	checker *Checker
}

func newCheckerFixture(t *testing.T) *checkerFixture {
	f := &checkerFixture{src: &fakeSource{}, pub: &recorder{}}
	f.state = NewState("1.0.0", f.pub)
	f.checker = NewChecker(f.src, f.state, quietLogger(), t.TempDir())
	return f
}

func TestManualCheckWithoutUpdate(t *testing.T) {
	f := newCheckerFixture(t)

	f.checker.Check(context.Background(), true)

	assert.Equal(t, []Phase{PhaseChecking, PhaseNone}, f.pub.phases())
	assert.Equal(t, "1.0.0", f.pub.all()[0].CurrentVersion)
}

func TestAutomaticCheckWithoutUpdateIsSilent(t *testing.T) {
	f := newCheckerFixture(t)

	f.checker.Check(context.Background(), false)

	assert.Empty(t, f.pub.all())
}

func TestCheckFailure(t *testing.T) {
	f := newCheckerFixture(t)
	f.src.set(nil, errors.New("dns failure"))

	f.checker.Check(context.Background(), false)
	assert.Empty(t, f.pub.all(), "automatic failures are only logged")

	f.checker.Check(context.Background(), true)
	states := f.pub.all()
	require.Len(t, states, 2)
	assert.Equal(t, PhaseError, states[1].Phase)
	assert.Equal(t, "Failed to check for updates.\nPlease try again later.\n\nError: dns failure", states[1].Error)
}

func TestAvailableUpdateIsPublished(t *testing.T) {
	f := newCheckerFixture(t)
	f.src.set(release("2.0.0"), nil)

	f.checker.Check(context.Background(), false)

	states := f.pub.all()
	require.Len(t, states, 1)
	assert.Equal(t, WindowState{
		Phase:          PhaseAvailable,
		Version:        "2.0.0",
		CurrentVersion: "1.0.0",
		ReleaseNotes:   "notes for 2.0.0",
	}, states[0])
	assert.Equal(t, "2.0.0", f.state.Pending().Version)
	assert.Equal(t, states[0], f.state.WindowState())
}

func TestMissingNotesFallback(t *testing.T) {
	f := newCheckerFixture(t)
	rel := release("2.0.0")
	rel.Notes = ""
	f.src.set(rel, nil)

	f.checker.Check(context.Background(), false)

	assert.Equal(t, "No release notes available", f.state.WindowState().ReleaseNotes)
}

func TestDeclinedVersionStaysQuietUntilNewerRelease(t *testing.T) {
	f := newCheckerFixture(t)
	inst := NewInstaller(f.src, f.state, quietLogger(), t.TempDir(), nil, func() error { return nil })

	f.src.set(release("2.0.0"), nil)
	f.checker.Check(context.Background(), false)
	require.NoError(t, inst.Respond(context.Background(), false))
	assert.Equal(t, "2.0.0", f.state.SuppressedVersion())
	assert.Nil(t, f.state.Pending())

	f.checker.Check(context.Background(), false)
	assert.Len(t, f.pub.all(), 1, "declined version is not offered again")
	assert.Nil(t, f.state.Pending())

	f.src.set(release("2.0.1"), nil)
	f.checker.Check(context.Background(), false)
	states := f.pub.all()
	require.Len(t, states, 2)
	assert.Equal(t, PhaseAvailable, states[1].Phase)
	assert.Equal(t, "2.0.1", states[1].Version)
}

func TestManualCheckIgnoresDecline(t *testing.T) {
	f := newCheckerFixture(t)
	f.state.Suppress("2.0.0")
	f.src.set(release("2.0.0"), nil)

	f.checker.Check(context.Background(), true)

	assert.Equal(t, []Phase{PhaseChecking, PhaseAvailable}, f.pub.phases())
	assert.NotNil(t, f.state.Pending())
}

func TestNewerCheckReplacesPending(t *testing.T) {
	f := newCheckerFixture(t)
	f.src.set(release("2.0.0"), nil)
	f.checker.Check(context.Background(), false)
	f.src.set(release("2.1.0"), nil)
	f.checker.Check(context.Background(), false)

	assert.Equal(t, "2.1.0", f.state.Pending().Version)
}

func TestRunSurvivesPanicsAndStopsOnCancel(t *testing.T) {
	f := newCheckerFixture(t)
	f.src.panicNext = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.checker.Run(ctx, func() time.Duration { return 5 * time.Millisecond })
		close(done)
	}()

	require.Eventually(t, func() bool { return f.src.checks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
