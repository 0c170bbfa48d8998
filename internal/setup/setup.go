// Package setup writes a starting configuration file, either for the current
// user or system-wide. Values not given as options are prompted for.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arch-ai/spark/internal/config"
)

// ErrExists is returned when the target config file exists and Force is unset.
var ErrExists = errors.New("config file already exists")

// Options holds the flags passed to `spark init`. Empty values are prompted
// for when Interactive is set and otherwise take the defaults.
type Options struct {
	Mode        string // "system", "user", or "" (prompt, default user)
	LogLevel    string
	DockerBin   string
	PM2Bin      string
	Path        string // overrides the mode's config path
	Force       bool
	Interactive bool
}

// Run writes the config file and returns its path.
func Run(out io.Writer, in io.Reader, opts Options) (string, error) {
	fmt.Fprintln(out, "spark setup")
	fmt.Fprintln(out, strings.Repeat("─", 11))

	reader := bufio.NewReader(in)

	mode, err := resolveMode(opts.Mode, opts.Interactive, out, reader)
	if err != nil {
		return "", err
	}
	if opts.Path == "" {
		if err := CheckElevation(mode); err != nil {
			return "", err
		}
	}

	path := opts.Path
	if path == "" {
		path = ResolvePaths(mode).ConfigPath
	}
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return "", fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
	}

	cfg := config.DefaultConfig()
	cfg.Logging.Level = resolveValue(opts.LogLevel, "Log level", cfg.Logging.Level, opts.Interactive, out, reader)
	cfg.Docker.Binary = resolveValue(opts.DockerBin, "Container engine CLI", cfg.Docker.Binary, opts.Interactive, out, reader)
	cfg.Node.PM2Binary = resolveValue(opts.PM2Bin, "PM2 CLI", cfg.Node.PM2Binary, opts.Interactive, out, reader)
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	if err := config.WriteConfig(cfg, path); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Written config → %s (%s)\n", path, mode)
	return path, nil
}

// resolveMode determines the config scope from flag or prompt.
func resolveMode(flagValue string, interactive bool, out io.Writer, reader *bufio.Reader) (InstallMode, error) {
	if flagValue != "" {
		return ParseMode(flagValue)
	}
	if !interactive {
		return ModeUser, nil
	}
	fmt.Fprintln(out, "Configuration scope:")
	fmt.Fprintln(out, "  [1] System (/etc/spark) requires root")
	fmt.Fprintln(out, "  [2] User (~/.config/spark)")
	fmt.Fprint(out, "> ")
	choice, _ := reader.ReadString('\n')
	switch strings.TrimSpace(choice) {
	case "1":
		return ModeSystem, nil
	case "2", "":
		return ModeUser, nil
	default:
		return 0, fmt.Errorf("invalid choice %q", strings.TrimSpace(choice))
	}
}

// resolveValue gets a value from flag or prompt, falling back to defaultVal.
func resolveValue(flagValue, prompt, defaultVal string, interactive bool, out io.Writer, reader *bufio.Reader) string {
	if flagValue != "" || !interactive {
		if flagValue == "" {
			return defaultVal
		}
		return flagValue
	}
	fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
	val, _ := reader.ReadString('\n')
	if val = strings.TrimSpace(val); val == "" {
		return defaultVal
	}
	return val
}
