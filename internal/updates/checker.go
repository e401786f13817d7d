// Package updates checks for new releases of the shell, asks the user about
// them through the update window and installs the accepted ones.
package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/logging"
)

const noNotes = "No release notes available"

func checkFailedMessage(err error) string {
	return fmt.Sprintf("Failed to check for updates.\nPlease try again later.\n\nError: %v", err)
}

type Checker struct {
	source   Source
	state    *State
	log      logrus.FieldLogger
	crashDir string
}

func NewChecker(source Source, state *State, log logrus.FieldLogger, crashDir string) *Checker {
	return &Checker{source: source, state: state, log: log, crashDir: crashDir}
}

// Check asks the source for a newer release. Automatic checks stay silent
// unless there is an update the user has not declined yet; manual checks
// always report their outcome.
func (c *Checker) Check(ctx context.Context, manual bool) {
	current := c.state.CurrentVersion()
	if manual {
		c.state.Publish(WindowState{Phase: PhaseChecking, CurrentVersion: current})
	}

	rel, err := c.source.Latest(ctx)
	if err != nil {
		c.log.Errorf("update check failed: %v", err)
		if manual {
			c.state.Publish(WindowState{Phase: PhaseError, CurrentVersion: current, Error: checkFailedMessage(err)})
		}
		return
	}
	if rel == nil {
		c.log.Infof("no update available, running %s", current)
		if manual {
			c.state.Publish(WindowState{Phase: PhaseNone, CurrentVersion: current})
		}
		return
	}

	if !c.state.Offer(rel, manual) {
		c.log.Infof("skipping update %s, already declined", rel.Version)
		return
	}
	c.log.Infof("update %s available (running %s)", rel.Version, current)
	c.state.Publish(availableState(rel, current))
}

// Run checks once per interval until ctx is done. interval is read before
// every wait so config reloads take effect.
func (c *Checker) Run(ctx context.Context, interval func() time.Duration) {
	for {
		c.checkRecovered(ctx)
		t := time.NewTimer(interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (c *Checker) checkRecovered(ctx context.Context) {
	defer logging.Recover(c.log, c.crashDir, "update check")
	c.Check(ctx, false)
}

func availableState(rel *Release, current string) WindowState {
	notes := rel.Notes
	if notes == "" {
		notes = noNotes
	}
	return WindowState{
		Phase:          PhaseAvailable,
		Version:        rel.Version,
		CurrentVersion: current,
		ReleaseNotes:   notes,
	}
}
