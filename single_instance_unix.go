//go:build !windows

package main

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

func tryAcquireSingleInstance(appID string) (primary bool, release func(), err error) {
	dir, err := instanceDir(appID)
	if err != nil {
		return false, nil, err
	}
	lock := flock.New(filepath.Join(dir, "instance.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, func() {}, nil
	}
	return true, func() { _ = lock.Unlock() }, nil
}
