package main

import (
	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/logger"
)

// wailsLogger routes the framework's own log output through logrus.
type wailsLogger struct {
	entry *logrus.Entry
}

var _ logger.Logger = wailsLogger{}

func (w wailsLogger) Print(message string)   { w.entry.Info(message) }
func (w wailsLogger) Trace(message string)   { w.entry.Trace(message) }
func (w wailsLogger) Debug(message string)   { w.entry.Debug(message) }
func (w wailsLogger) Info(message string)    { w.entry.Info(message) }
func (w wailsLogger) Warning(message string) { w.entry.Warn(message) }
func (w wailsLogger) Error(message string)   { w.entry.Error(message) }
func (w wailsLogger) Fatal(message string)   { w.entry.Fatal(message) }

func wailsLogLevel(l logrus.Level) logger.LogLevel {
	switch {
	case l >= logrus.TraceLevel:
		return logger.TRACE
	case l >= logrus.DebugLevel:
		return logger.DEBUG
	case l >= logrus.InfoLevel:
		return logger.INFO
	case l >= logrus.WarnLevel:
		return logger.WARNING
	default:
		return logger.ERROR
	}
}
