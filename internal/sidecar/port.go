package sidecar

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const probeTimeout = time.Second

// AllocatePort asks the OS for a free loopback port. The port is released
// before returning, so another process may grab it first.
func AllocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port, nil
}

// IsPortInUse reports whether something accepts connections on the loopback
// port. Only a refused connection counts as free; timeouts and other dial
// errors are treated as in use.
func IsPortInUse(port string) bool {
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return true
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", port), probeTimeout)
	if err == nil {
		_ = conn.Close()
		return true
	}
	return !isConnRefused(err)
}
