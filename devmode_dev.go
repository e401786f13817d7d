//go:build dev

package main

import (
	"syftbox-desktop/internal/config"
	"syftbox-desktop/internal/sidecar"
)

// devMode builds attach to a worker started by hand instead of spawning one.
const devMode = true

func connectionParams(cfg *config.Config) (sidecar.ConnectionParams, error) {
	if err := cfg.RequireDaemonOverrides(); err != nil {
		return sidecar.ConnectionParams{}, err
	}
	return sidecar.ConnectionParams{
		Host:  cfg.Daemon.Host,
		Port:  cfg.Daemon.Port,
		Token: cfg.Daemon.Token,
	}, nil
}
