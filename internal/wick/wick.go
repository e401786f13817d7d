// Package wick is the watchdog that outlives the shell: it waits for a parent
// process to die and then takes the registered process groups down with it.
package wick

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"syftbox-desktop/internal/procgroup"
)

const (
	DefaultPoll  = 500 * time.Millisecond
	DefaultGrace = 3 * time.Second

	settlePoll = 50 * time.Millisecond
	killSettle = time.Second
)

var ErrGroupsSurvived = errors.New("process groups still alive after kill")

type Options struct {
	Targets []int
	// Parent is the pid to watch; zero means our own parent.
	Parent int
	Poll   time.Duration
	Grace  time.Duration
}

func (o Options) Validate() error {
	if len(o.Targets) == 0 {
		return errors.New("at least one target is required")
	}
	for _, t := range o.Targets {
		if t <= 1 {
			return fmt.Errorf("invalid target %d", t)
		}
	}
	if o.Parent < 0 {
		return fmt.Errorf("invalid parent %d", o.Parent)
	}
	return nil
}

// Run blocks until the parent is gone and then stops every target group,
// or returns early when the targets have all exited on their own.
func Run(ctx context.Context, opts Options, log logrus.FieldLogger) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Poll <= 0 {
		opts.Poll = DefaultPoll
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	startPpid := os.Getppid()
	if opts.Parent == 0 {
		opts.Parent = startPpid
	}

	parentGone := watchParent(opts.Parent, startPpid)
	log.Infof("watching parent %d for targets %v", opts.Parent, opts.Targets)

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		if len(alive(opts.Targets)) == 0 {
			log.Info("all targets already gone")
			return nil
		}
		if parentGone() {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	log.Infof("parent %d is gone, stopping targets", opts.Parent)
	return stopAll(opts.Targets, opts.Grace, log)
}

func stopAll(targets []int, grace time.Duration, log logrus.FieldLogger) error {
	live := alive(targets)
	for _, t := range live {
		if err := procgroup.Terminate(t); err != nil {
			log.Warnf("terminate group %d: %v", t, err)
		}
	}

	live = waitGone(live, grace)
	if len(live) == 0 {
		return nil
	}
	for _, t := range live {
		log.Warnf("group %d still alive after %s, killing", t, grace)
		if err := procgroup.Kill(t); err != nil {
			log.Warnf("kill group %d: %v", t, err)
		}
	}

	if live = waitGone(live, killSettle); len(live) > 0 {
		return fmt.Errorf("%w: %v", ErrGroupsSurvived, live)
	}
	return nil
}

func waitGone(targets []int, d time.Duration) []int {
	deadline := time.Now().Add(d)
	live := alive(targets)
	for len(live) > 0 && time.Now().Before(deadline) {
		time.Sleep(settlePoll)
		live = alive(live)
	}
	return live
}

func alive(targets []int) []int {
	var out []int
	for _, t := range targets {
		if procgroup.GroupAlive(t) {
			out = append(out, t)
		}
	}
	return out
}
