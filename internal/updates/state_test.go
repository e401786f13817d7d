package updates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowStateJSON(t *testing.T) {
	b, err := json.Marshal(WindowState{
		Phase:          PhaseAvailable,
		Version:        "2.0.0",
		CurrentVersion: "1.0.0",
		ReleaseNotes:   "fixes",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"updateWindowType":"available","version":"2.0.0","currentVersion":"1.0.0","releaseNotes":"fixes","error":"","progress":0}`, string(b))

	var back WindowState
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, PhaseAvailable, back.Phase)
}

func TestPhaseNames(t *testing.T) {
	for p, name := range map[Phase]string{
		PhaseChecking:    "checking",
		PhaseNone:        "none",
		PhaseAvailable:   "available",
		PhaseDownloading: "downloading",
		PhaseError:       "error",
		PhaseFailed:      "failed",
	} {
		assert.Equal(t, name, p.String())
	}
	_, err := Phase(42).MarshalText()
	assert.Error(t, err)
}

func TestWindowStateDefaultsToChecking(t *testing.T) {
	s := NewState("1.0.0", nil)
	assert.Equal(t, WindowState{Phase: PhaseChecking, CurrentVersion: "1.0.0"}, s.WindowState())

	s.Publish(WindowState{Phase: PhaseNone, CurrentVersion: "1.0.0"})
	assert.Equal(t, PhaseNone, s.WindowState().Phase)
}

func TestOfferHonoursSuppression(t *testing.T) {
	s := NewState("1.0.0", nil)
	s.Suppress("2.0.0")

	assert.False(t, s.Offer(&Release{Version: "2.0.0"}, false))
	assert.Nil(t, s.Pending())

	assert.True(t, s.Offer(&Release{Version: "2.0.0"}, true), "manual checks ignore suppression")
	assert.True(t, s.Offer(&Release{Version: "2.0.1"}, false))
	assert.Equal(t, "2.0.1", s.Pending().Version)

	assert.Equal(t, "2.0.1", s.TakePending().Version)
	assert.Nil(t, s.TakePending())
}
