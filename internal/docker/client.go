// Package docker polls the container engine CLI, groups containers by compose
// project and runs lifecycle commands in the background.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell"
)

// EmptyMessage is shown when the container view has nothing to list.
const EmptyMessage = "No running containers or engine stats unavailable."

// ErrEngineUnavailable is returned when the engine CLI is not installed.
var ErrEngineUnavailable = errors.New("container engine CLI not available")

const (
	listFormat     = "{{.ID}}|{{.Names}}|{{.Image}}|{{.Ports}}|{{.Status}}|{{.Labels}}"
	statsFormat    = "{{.ID}}|{{.Name}}|{{.CPUPerc}}|{{.MemUsage}}"
	bindingsFormat = "{{.ID}}|{{.Names}}|{{.Image}}|{{.Ports}}|{{.Labels}}"
	namesFormat    = "{{.ID}} {{.Names}}"
	envFormat      = "{{range .Config.Env}}{{println .}}{{end}}"

	shortIDLen = 12
)

// Client runs engine CLI commands.
type Client struct {
	runner shell.Runner
	binary string
	logger *zap.Logger
}

// NewClient creates a client for binary ("docker" when empty).
func NewClient(runner shell.Runner, binary string, logger *zap.Logger) *Client {
	if binary == "" {
		binary = "docker"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{runner: runner, binary: binary, logger: logger}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	res, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		if errors.Is(err, shell.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return nil, err
	}
	return res.Stdout, nil
}

// ListContainers returns every container, running or not, joined with its
// current CPU and memory usage.
func (c *Client) ListContainers(ctx context.Context) ([]models.ContainerRecord, error) {
	listing, err := c.run(ctx, "ps", "-a", "--no-trunc", "--format", listFormat)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	if len(bytes.TrimSpace(listing)) == 0 {
		return []models.ContainerRecord{}, nil
	}
	stats, err := c.run(ctx, "stats", "--no-stream", "--format", statsFormat)
	if err != nil {
		return nil, fmt.Errorf("reading container stats: %w", err)
	}
	return ParseListing(listing, stats), nil
}

// Name identifies the client when it runs as a registry collector.
func (c *Client) Name() string { return "docker" }

// Collect runs ListContainers.
func (c *Client) Collect(ctx context.Context) (interface{}, error) {
	return c.ListContainers(ctx)
}

// IsAvailable always returns true; a missing engine surfaces as a Collect error.
func (c *Client) IsAvailable() bool { return true }

type usage struct {
	cpu float64
	mem uint64
}

// ParseListing joins `ps` and `stats` output. Stats are matched by full id,
// then by short id; unmatched containers report zero usage.
func ParseListing(listing, stats []byte) []models.ContainerRecord {
	byID := make(map[string]usage)
	for _, line := range lines(stats) {
		parts := strings.SplitN(line, "|", 4)
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		var u usage
		if len(parts) > 2 {
			u.cpu, _ = ParseCPUPercent(parts[2])
		}
		if len(parts) > 3 {
			u.mem, _ = ParseMemUsage(parts[3])
		}
		byID[id] = u
	}

	records := []models.ContainerRecord{}
	for _, line := range lines(listing) {
		f := splitFields(line, 6)
		id, name := f[0], f[1]
		if id == "" || name == "" {
			continue
		}
		rec := models.ContainerRecord{
			ID:        id,
			Name:      name,
			Image:     orDash(f[2]),
			Status:    orDash(f[4]),
			Running:   strings.HasPrefix(f[4], "Up"),
			GroupName: models.OtherGroup,
			Activity:  ParseActivity(f[4]),
		}
		rec.Ports, rec.InternalPorts = ParsePortStrings(f[3])
		if g, ok := ComposeGroupFromLabels(f[5]); ok {
			rec.GroupName, rec.GroupPath = g.Name, g.Path
		}
		u, ok := byID[id]
		if !ok && len(id) >= shortIDLen {
			u = byID[id[:shortIDLen]]
		}
		rec.CPU, rec.MemoryBytes = u.cpu, u.mem
		records = append(records, rec)
	}
	return records
}

// ContainerNames maps running container ids, full and short, to names.
func (c *Client) ContainerNames(ctx context.Context) (map[string]string, error) {
	out, err := c.run(ctx, "ps", "--no-trunc", "--format", namesFormat)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	for _, line := range lines(out) {
		id, name, _ := strings.Cut(line, " ")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if id == "" || name == "" {
			continue
		}
		names[id] = name
		if len(id) >= shortIDLen {
			names[id[:shortIDLen]] = name
		}
	}
	return names, nil
}

// PortBindings lists host ports published by running containers as port
// rows with pid 0.
func (c *Client) PortBindings(ctx context.Context) ([]models.PortRecord, error) {
	out, err := c.run(ctx, "ps", "--format", bindingsFormat)
	if err != nil {
		return nil, err
	}
	return ParseBindingRows(out), nil
}

// ParseBindingRows converts `ps` output in the bindings format into port rows.
func ParseBindingRows(out []byte) []models.PortRecord {
	var rows []models.PortRecord
	for _, line := range lines(out) {
		f := splitFields(line, 5)
		id, name, image, ports := f[0], f[1], f[2], f[3]
		if id == "" || name == "" || ports == "" {
			continue
		}
		var group string
		if g, ok := ComposeGroupFromLabels(f[4]); ok {
			group = g.Name
		}
		for _, b := range ParsePortBindings(ports) {
			exe := "image:" + image
			if b.ContainerPort > 0 {
				exe = fmt.Sprintf("image:%s int:%d", image, b.ContainerPort)
			}
			rows = append(rows, models.PortRecord{
				Proto:       b.Proto,
				Port:        b.HostPort,
				ProcessName: "docker:" + name,
				Exe:         exe,
				ContainerID: id,
				GroupName:   group,
				ProjectName: group,
			})
		}
	}
	return rows
}

// LoadContainerEnv returns the KEY=VALUE environment of a container.
func (c *Client) LoadContainerEnv(ctx context.Context, id string) ([]string, error) {
	out, err := c.run(ctx, "inspect", "--format", envFormat, id)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", id, err)
	}
	return lines(out), nil
}

// Do runs one lifecycle action against a container.
func (c *Client) Do(ctx context.Context, action models.ContainerAction, id string) error {
	if _, err := c.run(ctx, string(action), id); err != nil {
		return fmt.Errorf("docker %s %s: %w", action, id, err)
	}
	return nil
}

// StartContainer starts a stopped container.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.Do(ctx, models.ActionStart, id)
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, id string) error {
	return c.Do(ctx, models.ActionStop, id)
}

// RestartContainer restarts a container.
func (c *Client) RestartContainer(ctx context.Context, id string) error {
	return c.Do(ctx, models.ActionRestart, id)
}

// KillContainer sends SIGKILL to a container.
func (c *Client) KillContainer(ctx context.Context, id string) error {
	return c.Do(ctx, models.ActionKill, id)
}

// lines splits CLI output into non-blank lines with trailing "\r" removed.
func lines(out []byte) []string {
	var res []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		res = append(res, line)
	}
	return res
}

// splitFields splits a '|' separated line into exactly n trimmed fields.
func splitFields(line string, n int) []string {
	parts := strings.SplitN(line, "|", n)
	out := make([]string, n)
	for i := range parts {
		out[i] = strings.TrimSpace(parts[i])
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return dash
	}
	return s
}
