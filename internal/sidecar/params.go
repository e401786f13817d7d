package sidecar

import (
	"fmt"
	"net"
	"strconv"

	"syftbox-desktop/internal/logging"
)

// ConnectionParams is how the frontend and the worker find each other.
// One set is generated per shell run and never changes afterwards.
type ConnectionParams struct {
	Host  string `json:"host"`
	Port  string `json:"port"`
	Token string `json:"token"`
}

// NewConnectionParams fills in a fresh token. Port "0" is replaced by a free
// ephemeral port.
func NewConnectionParams(host, port string) (ConnectionParams, error) {
	if port == "" || port == "0" {
		p, err := AllocatePort()
		if err != nil {
			return ConnectionParams{}, err
		}
		port = strconv.Itoa(p)
	}
	token, err := GenerateToken()
	if err != nil {
		return ConnectionParams{}, err
	}
	return ConnectionParams{Host: host, Port: port, Token: token}, nil
}

func (p ConnectionParams) Addr() string {
	return net.JoinHostPort(p.Host, p.Port)
}

// String is safe to log.
func (p ConnectionParams) String() string {
	return fmt.Sprintf("%s token=%s", p.Addr(), logging.RedactToken(p.Token))
}
