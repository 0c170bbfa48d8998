// Package platform provides an OS abstraction layer for process control that
// gopsutil does not cover. Each supported OS implements the Platform interface.
package platform

import (
	"errors"
	"syscall"
)

// ErrUnsupported is returned by platforms that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported on this platform")

// Platform provides OS-specific process control.
type Platform interface {
	// Signal delivers sig to the process with the given pid.
	Signal(pid int32, sig syscall.Signal) error

	// Name returns the platform name (linux, darwin, stub).
	Name() string
}

// Kill sends SIGKILL to pid.
func Kill(p Platform, pid int32) error {
	return p.Signal(pid, syscall.SIGKILL)
}

// Terminate sends SIGTERM to pid.
func Terminate(p Platform, pid int32) error {
	return p.Signal(pid, syscall.SIGTERM)
}
