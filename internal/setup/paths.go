package setup

import (
	"os"
	"path/filepath"
	"runtime"
)

// ResolvePaths returns the first location the config loader searches for
// mode.
func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		dir := filepath.Join(userConfigBase(), "spark")
		return Paths{ConfigDir: dir, ConfigPath: filepath.Join(dir, "config.yaml")}
	}
	return Paths{
		ConfigDir:  "/etc/spark",
		ConfigPath: "/etc/spark/config.yaml",
	}
}

func userConfigBase() string {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		dir, _ := os.UserConfigDir()
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
