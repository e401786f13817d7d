// Package logging wires the shell's logrus logger: one stdout target and one
// append-only file under ~/.syftbox/logs, both with the same line format.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FileName is the base name of the shell log; crash records go to the same file.
const FileName = "SyftBoxDesktop.log"

// ComponentKey is the field every component logger is tagged with.
const ComponentKey = "component"

type Config struct {
	Dir    string
	Level  string
	Stdout io.Writer
}

// DefaultDir returns ~/.syftbox/logs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".syftbox", "logs"), nil
}

// New builds the logger. The returned closer flushes the log file; it is
// never nil.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&Formatter{})
	logger.SetLevel(ParseLevel(cfg.Level))

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if cfg.Dir == "" {
		logger.SetOutput(stdout)
		return logger, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		logger.SetOutput(stdout)
		return logger, io.NopCloser(nil), fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.Dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.SetOutput(stdout)
		return logger, io.NopCloser(nil), fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(stdout, f))
	return logger, f, nil
}

// ParseLevel maps a config string to a logrus level, defaulting to info.
func ParseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Component returns a logger tagged with the component name.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	return l.WithField(ComponentKey, name)
}

// Formatter renders "[2025-01-02][15:04:05][component][INFO] message k=v".
// Timestamps are UTC.
type Formatter struct{}

func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	ts := e.Time.UTC()
	component, _ := e.Data[ComponentKey].(string)
	if component == "" {
		component = "shell"
	}
	fmt.Fprintf(&b, "[%s][%s][%s][%s] %s",
		ts.Format("2006-01-02"), ts.Format("15:04:05"), component,
		strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k == ComponentKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// RedactToken keeps the first four characters of a bearer token.
func RedactToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "…"
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
