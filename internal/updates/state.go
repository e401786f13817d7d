package updates

import (
	"fmt"
	"sync"
	"time"
)

// Phase is what the update window is currently showing.
type Phase int

const (
	PhaseChecking Phase = iota
	PhaseNone
	PhaseAvailable
	PhaseDownloading
	PhaseError
	PhaseFailed
)

var phaseNames = [...]string{"checking", "none", "available", "downloading", "error", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// WindowState is the payload of the update-window-state event.
type WindowState struct {
	Phase          Phase  `json:"updateWindowType"`
	Version        string `json:"version"`
	CurrentVersion string `json:"currentVersion"`
	ReleaseNotes   string `json:"releaseNotes"`
	Error          string `json:"error"`
	Progress       int    `json:"progress"`
}

type Artifact struct {
	URL       string
	SHA256    string
	Signature string
	Platform  string
}

// Release is an update that is newer than the running version.
type Release struct {
	Version        string
	CurrentVersion string
	Notes          string
	Date           time.Time
	Artifact       Artifact
}

// Publisher shows a window state to the user.
type Publisher interface {
	PublishWindowState(ws WindowState)
}

// State is shared by the checker, the installer and the UI. The suppressed
// version and the pending release are guarded together so that a check and a
// decline can never interleave; the window cache has its own lock.
type State struct {
	currentVersion string
	publisher      Publisher

	mu         sync.Mutex
	suppressed string
	pending    *Release

	windowMu sync.Mutex
	window   *WindowState
}

func NewState(currentVersion string, publisher Publisher) *State {
	return &State{currentVersion: currentVersion, publisher: publisher}
}

func (s *State) CurrentVersion() string { return s.currentVersion }

func (s *State) SuppressedVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressed
}

func (s *State) Suppress(version string) {
	s.mu.Lock()
	s.suppressed = version
	s.mu.Unlock()
}

// Offer stores rel as the pending release unless it is an automatic check
// for the version the user already declined. It reports whether rel was
// stored.
func (s *State) Offer(rel *Release, manual bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !manual && rel.Version == s.suppressed {
		return false
	}
	s.pending = rel
	return true
}

func (s *State) Pending() *Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// TakePending returns the pending release and clears it.
func (s *State) TakePending() *Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel := s.pending
	s.pending = nil
	return rel
}

// WindowState returns the last published state, or "checking" when nothing
// was published yet.
func (s *State) WindowState() WindowState {
	s.windowMu.Lock()
	defer s.windowMu.Unlock()
	if s.window == nil {
		return WindowState{Phase: PhaseChecking, CurrentVersion: s.currentVersion}
	}
	return *s.window
}

// Publish caches ws and forwards it to the UI.
func (s *State) Publish(ws WindowState) {
	s.windowMu.Lock()
	cached := ws
	s.window = &cached
	s.windowMu.Unlock()
	if s.publisher != nil {
		s.publisher.PublishWindowState(ws)
	}
}
