//go:build linux || darwin

// Unix Platform implementation backed by golang.org/x/sys/unix.
package platform

import (
	"fmt"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// UnixPlatform implements Platform with kill(2).
type UnixPlatform struct{}

// New creates the platform instance for the running OS.
func New() Platform {
	return &UnixPlatform{}
}

// Name returns the platform identifier.
func (p *UnixPlatform) Name() string { return runtime.GOOS }

// Signal sends sig to pid. Pids 0 and below address process groups and are rejected.
func (p *UnixPlatform) Signal(pid int32, sig syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("refusing to signal pid %d", pid)
	}
	if err := unix.Kill(int(pid), sig); err != nil {
		return fmt.Errorf("signalling %d with %s: %w", pid, unix.SignalName(sig), err)
	}
	return nil
}
