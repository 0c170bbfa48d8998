//go:build !linux && !darwin

package setup

import "errors"

// CheckElevation rejects system mode where /etc/spark is not searched.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser {
		return nil
	}
	return errors.New("system-wide configuration is only supported on Linux and macOS")
}
