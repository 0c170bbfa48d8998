//go:build !linux && !darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(dir, "spark", "config.yaml")}
}
