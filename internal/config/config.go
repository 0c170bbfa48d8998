// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "2s", "500ms", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all dashboard configuration.
type Config struct {
	Refresh RefreshConfig `yaml:"refresh"`
	Cache   CacheConfig   `yaml:"cache"`
	Process ProcessConfig `yaml:"process"`
	Docker  DockerConfig  `yaml:"docker"`
	Node    NodeConfig    `yaml:"node"`
	Logging LoggingConfig `yaml:"logging"`
}

// RefreshConfig holds the cadences of the collection loop.
type RefreshConfig struct {
	// Interval is how often the active view is recollected.
	Interval Duration `yaml:"interval"`
	// DockerPoll is the sleep between background engine polls.
	DockerPoll Duration `yaml:"docker_poll"`
	// DockerPull is how often the loop copies the worker snapshot.
	DockerPull Duration `yaml:"docker_pull"`
}

// CacheConfig holds the TTLs of the expiring caches.
type CacheConfig struct {
	InodeTTL     Duration `yaml:"inode_ttl"`
	PSSTTL       Duration `yaml:"pss_ttl"`
	ContainerTTL Duration `yaml:"container_ttl"`
	UserTTL      Duration `yaml:"user_ttl"`
}

// ProcessConfig holds process view settings.
type ProcessConfig struct {
	TreeMode    bool `yaml:"tree_mode"`
	SkipThreads bool `yaml:"skip_threads"`
	// Parents listed here never adopt children in tree mode.
	SkipAncestorPIDs  []int32  `yaml:"skip_ancestor_pids"`
	SkipAncestorNames []string `yaml:"skip_ancestor_names"`
	SortBy            string   `yaml:"sort_by"`
	SortOrder         string   `yaml:"sort_order"`
	// CPUWindow is how long a one-shot collection waits between the CPU
	// baseline and the sample it reports.
	CPUWindow Duration `yaml:"cpu_window"`
}

// DockerConfig holds container engine CLI settings.
type DockerConfig struct {
	Binary         string   `yaml:"binary"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// NodeConfig holds Node.js and PM2 settings.
type NodeConfig struct {
	PM2Binary       string   `yaml:"pm2_binary"`
	CommandTimeout  Duration `yaml:"command_timeout"`
	MaxProjectDepth int      `yaml:"max_project_depth"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Refresh: RefreshConfig{
			Interval:   Duration{1 * time.Second},
			DockerPoll: Duration{2 * time.Second},
			DockerPull: Duration{1 * time.Second},
		},
		Cache: CacheConfig{
			InodeTTL:     Duration{2 * time.Second},
			PSSTTL:       Duration{10 * time.Second},
			ContainerTTL: Duration{5 * time.Second},
			UserTTL:      Duration{30 * time.Second},
		},
		Process: ProcessConfig{
			TreeMode:          true,
			SkipThreads:       true,
			SkipAncestorPIDs:  []int32{1},
			SkipAncestorNames: []string{"gnome-shell"},
			SortBy:            "cpu",
			SortOrder:         "desc",
			CPUWindow:         Duration{250 * time.Millisecond},
		},
		Docker: DockerConfig{
			Binary:         "docker",
			CommandTimeout: Duration{10 * time.Second},
		},
		Node: NodeConfig{
			PM2Binary:       "pm2",
			CommandTimeout:  Duration{5 * time.Second},
			MaxProjectDepth: 15,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Zero values are treated as "not set" and skipped.
type CLIOverrides struct {
	LogLevel  string
	LogFile   string
	Interval  time.Duration
	FlatTree  bool
	SortBy    string
	SortOrder string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Logging.File = cli.LogFile
	}
	if cli.Interval > 0 {
		cfg.Refresh.Interval = Duration{cli.Interval}
	}
	if cli.FlatTree {
		cfg.Process.TreeMode = false
	}
	if cli.SortBy != "" {
		cfg.Process.SortBy = cli.SortBy
	}
	if cli.SortOrder != "" {
		cfg.Process.SortOrder = cli.SortOrder
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if level := os.Getenv("SPARK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("SPARK_LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}
	if bin := os.Getenv("SPARK_DOCKER_BIN"); bin != "" {
		cfg.Docker.Binary = bin
	}
	if bin := os.Getenv("SPARK_PM2_BIN"); bin != "" {
		cfg.Node.PM2Binary = bin
	}
	if interval := os.Getenv("SPARK_REFRESH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid SPARK_REFRESH_INTERVAL %q: %w", interval, err)
		}
		cfg.Refresh.Interval = Duration{d}
	}
	return nil
}

// Validate checks that intervals and TTLs are positive and that the external
// binaries are named.
func (c *Config) Validate() error {
	durations := map[string]Duration{
		"refresh.interval":    c.Refresh.Interval,
		"refresh.docker_poll": c.Refresh.DockerPoll,
		"refresh.docker_pull": c.Refresh.DockerPull,
		"cache.inode_ttl":     c.Cache.InodeTTL,
		"cache.pss_ttl":       c.Cache.PSSTTL,
		"cache.container_ttl": c.Cache.ContainerTTL,
		"cache.user_ttl":      c.Cache.UserTTL,
		"process.cpu_window":  c.Process.CPUWindow,
	}
	for name, d := range durations {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive (got %s)", name, d.Duration)
		}
	}
	if c.Docker.Binary == "" {
		return fmt.Errorf("docker.binary is required")
	}
	if c.Node.PM2Binary == "" {
		return fmt.Errorf("node.pm2_binary is required")
	}
	if c.Node.MaxProjectDepth <= 0 {
		return fmt.Errorf("node.max_project_depth must be positive (got %d)", c.Node.MaxProjectDepth)
	}
	return nil
}
