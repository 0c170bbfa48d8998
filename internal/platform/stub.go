//go:build !linux && !darwin

// Stub Platform implementation for operating systems without kill(2).
package platform

import "syscall"

// StubPlatform rejects every operation.
type StubPlatform struct{}

// New creates a stub platform instance.
func New() Platform {
	return &StubPlatform{}
}

// Name returns the platform identifier.
func (p *StubPlatform) Name() string { return "stub" }

// Signal always fails with ErrUnsupported.
func (p *StubPlatform) Signal(int32, syscall.Signal) error {
	return ErrUnsupported
}
