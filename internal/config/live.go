package config

import (
	"sync/atomic"
	"time"
)

// Live holds the settings that can change while the shell runs. Everything
// else only takes effect on the next launch.
type Live struct {
	checkInterval atomic.Int64
	logLevel      atomic.Value
}

func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.Apply(cfg)
	return l
}

func (l *Live) Apply(cfg *Config) {
	l.checkInterval.Store(int64(cfg.Updates.CheckInterval))
	l.logLevel.Store(cfg.Log.Level)
}

func (l *Live) CheckInterval() time.Duration {
	return time.Duration(l.checkInterval.Load())
}

func (l *Live) LogLevel() string {
	s, _ := l.logLevel.Load().(string)
	return s
}
