//go:build !linux && !darwin && !freebsd && !windows

package diskspace

import (
	"errors"
	"runtime"
)

func freeBytes(string) (uint64, error) {
	return 0, errors.New("free space query is not supported on " + runtime.GOOS)
}
