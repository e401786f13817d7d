//go:build !dev

package main

import (
	"syftbox-desktop/internal/config"
	"syftbox-desktop/internal/sidecar"
)

const devMode = false

func connectionParams(cfg *config.Config) (sidecar.ConnectionParams, error) {
	return sidecar.NewConnectionParams(cfg.Daemon.Host, cfg.Daemon.Port)
}
