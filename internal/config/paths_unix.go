//go:build linux || darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	paths := make([]string, 0, 3)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "spark", "config.yaml"))
	}
	return append(paths,
		filepath.Join(home, ".config", "spark", "config.yaml"),
		"/etc/spark/config.yaml",
	)
}
