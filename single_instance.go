package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// A second launch hands over to the running instance through a loopback
// socket whose port is published in instance.json, then exits.

const showCommand = "show"

type instanceInfo struct {
	Port int `json:"port"`
	PID  int `json:"pid"`
}

func instanceDir(appID string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, sanitizeInstanceName(appID))
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}

func sanitizeInstanceName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "app"
	}
	return strings.NewReplacer("\\", "_", "/", "_", ":", "_", " ", "_").Replace(s)
}

func instanceInfoPath(appID string) (string, error) {
	dir, err := instanceDir(appID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "instance.json"), nil
}

func writeInstanceInfo(appID string, info instanceInfo) error {
	p, err := instanceInfoPath(appID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func readInstanceInfo(appID string) (instanceInfo, error) {
	p, err := instanceInfoPath(appID)
	if err != nil {
		return instanceInfo{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return instanceInfo{}, err
	}
	var info instanceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return instanceInfo{}, err
	}
	return info, nil
}

func startInstanceIPC(appID string) (net.Listener, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return nil, nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		_ = ln.Close()
		return nil, nil, err
	}
	if err := writeInstanceInfo(appID, instanceInfo{Port: port, PID: os.Getpid()}); err != nil {
		_ = ln.Close()
		return nil, nil, err
	}
	return ln, func() { _ = ln.Close() }, nil
}

func notifyExistingInstance(appID string) error {
	var lastErr error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, err := readInstanceInfo(appID)
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if info.Port <= 0 {
			lastErr = errors.New("invalid ipc port")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", info.Port), 300*time.Millisecond)
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		_, _ = conn.Write([]byte(showCommand))
		_ = conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("notify timeout")
	}
	return lastErr
}
