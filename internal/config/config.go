// Package config loads the shell's settings. Precedence, lowest first:
// built-in defaults, ~/.syftbox/desktop.yaml, SYFTBOX_DESKTOP_* env vars,
// and the DAEMON_* overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDaemonPort is the fixed port release builds hand to the worker.
	DefaultDaemonPort = "7938"
	DefaultEndpoint   = "https://github.com/OpenMined/syftbox/releases/latest/download/latest.json"
	envPrefix         = "SYFTBOX_DESKTOP"
)

// Env var names for attaching to an externally managed worker.
const (
	EnvDaemonHost  = "DAEMON_HOST"
	EnvDaemonPort  = "DAEMON_PORT"
	EnvDaemonToken = "DAEMON_TOKEN"
)

type Config struct {
	Daemon  DaemonConfig  `yaml:"daemon" mapstructure:"daemon"`
	Updates UpdatesConfig `yaml:"updates" mapstructure:"updates"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type DaemonConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	// Port "0" asks for an ephemeral port.
	Port           string        `yaml:"port" mapstructure:"port"`
	Token          string        `yaml:"-" mapstructure:"token"`
	Binary         string        `yaml:"binary" mapstructure:"binary"`
	WatchdogBinary string        `yaml:"watchdog_binary" mapstructure:"watchdog_binary"`
	GraceAttempts  int           `yaml:"grace_attempts" mapstructure:"grace_attempts"`
	GraceInterval  time.Duration `yaml:"grace_interval" mapstructure:"grace_interval"`
	StopTimeout    time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

type UpdatesConfig struct {
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	CheckInterval   time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	CheckTimeout    time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           DefaultDaemonPort,
			Binary:         "syftboxd",
			WatchdogBinary: "process-wick",
			GraceAttempts:  10,
			GraceInterval:  time.Second,
			StopTimeout:    3 * time.Second,
		},
		Updates: UpdatesConfig{
			Endpoint:        DefaultEndpoint,
			CheckInterval:   time.Hour,
			CheckTimeout:    15 * time.Second,
			DownloadTimeout: 10 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.syftbox/desktop.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".syftbox", "desktop.yaml"), nil
}

// Load reads the config file at path (missing is fine) and the environment.
// In dev mode a .env file in the working directory is loaded first and the
// DAEMON_PORT/DAEMON_TOKEN overrides are honoured.
func Load(path string, devMode bool) (*Config, error) {
	if devMode {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := newViper(devMode)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func newViper(devMode bool) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	d := Default()
	v.SetDefault("daemon.host", d.Daemon.Host)
	v.SetDefault("daemon.port", d.Daemon.Port)
	v.SetDefault("daemon.token", "")
	v.SetDefault("daemon.binary", d.Daemon.Binary)
	v.SetDefault("daemon.watchdog_binary", d.Daemon.WatchdogBinary)
	v.SetDefault("daemon.grace_attempts", d.Daemon.GraceAttempts)
	v.SetDefault("daemon.grace_interval", d.Daemon.GraceInterval)
	v.SetDefault("daemon.stop_timeout", d.Daemon.StopTimeout)
	v.SetDefault("updates.endpoint", d.Updates.Endpoint)
	v.SetDefault("updates.check_interval", d.Updates.CheckInterval)
	v.SetDefault("updates.check_timeout", d.Updates.CheckTimeout)
	v.SetDefault("updates.download_timeout", d.Updates.DownloadTimeout)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("daemon.host", EnvDaemonHost)
	if devMode {
		_ = v.BindEnv("daemon.port", EnvDaemonPort)
		_ = v.BindEnv("daemon.token", EnvDaemonToken)
	}
	return v
}

func (c *Config) normalize() {
	d := Default()
	c.Daemon.Host = strings.TrimSpace(c.Daemon.Host)
	c.Daemon.Port = strings.TrimSpace(c.Daemon.Port)
	if c.Daemon.GraceAttempts < 0 {
		c.Daemon.GraceAttempts = 0
	}
	if c.Daemon.GraceInterval <= 0 {
		c.Daemon.GraceInterval = d.Daemon.GraceInterval
	}
	if c.Daemon.StopTimeout <= 0 {
		c.Daemon.StopTimeout = d.Daemon.StopTimeout
	}
	if c.Updates.CheckInterval < time.Minute {
		c.Updates.CheckInterval = d.Updates.CheckInterval
	}
	if c.Updates.CheckTimeout <= 0 {
		c.Updates.CheckTimeout = d.Updates.CheckTimeout
	}
	if c.Updates.DownloadTimeout <= 0 {
		c.Updates.DownloadTimeout = d.Updates.DownloadTimeout
	}
}

// RequireDaemonOverrides reports which DAEMON_* values are missing. Dev builds
// attach to a worker started by hand and cannot run without all three.
func (c *Config) RequireDaemonOverrides() error {
	var missing []string
	for _, k := range []string{EnvDaemonHost, EnvDaemonPort, EnvDaemonToken} {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Save writes cfg as YAML. The token is never persisted.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// EnsureFile writes the defaults to path if nothing is there yet.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, Save(path, Default())
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
