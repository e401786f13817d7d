// Command process-wick terminates process groups once the process that
// spawned it dies. The SyftBox shell starts one per worker so the worker
// never outlives the shell, even after a crash or a hard kill.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"syftbox-desktop/internal/logging"
	"syftbox-desktop/internal/wick"
)

// Version is set via -ldflags "-X main.Version=..." at build time.
var Version = "dev"

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd(os.Getppid()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "process-wick:", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd(ppid int) *cobra.Command {
	var (
		opts    wick.Options
		logFile string
	)
	cmd := &cobra.Command{
		Use:           "process-wick --targets <pgid>[,<pgid>...]",
		Short:         "Terminate process groups when the parent process dies",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Parent == 0 {
				opts.Parent = ppid
			}
			if err := opts.Validate(); err != nil {
				return usageError{err}
			}
			log, closer, err := newLogger(logFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = wick.Run(ctx, opts, log)
			if errors.Is(err, context.Canceled) {
				log.Info("interrupted, leaving targets alone")
				return nil
			}
			return err
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.IntSliceVar(&opts.Targets, "targets", nil, "process group ids to terminate")
	f.IntVar(&opts.Parent, "parent", 0, "pid to watch (default: parent process)")
	f.DurationVar(&opts.Poll, "poll", wick.DefaultPoll, "parent liveness poll interval")
	f.DurationVar(&opts.Grace, "grace", wick.DefaultGrace, "time between TERM and KILL")
	f.StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
	return cmd
}

func newLogger(path string) (logrus.FieldLogger, io.Closer, error) {
	l := logrus.New()
	l.SetFormatter(&logging.Formatter{})
	l.SetOutput(os.Stderr)
	closer := io.Closer(nopCloser{})
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		l.SetOutput(f)
		closer = f
	}
	return logging.Component(l, "process-wick").WithField("pid", os.Getpid()), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
