package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/config"
	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell/shelltest"
	"github.com/arch-ai/spark/internal/telemetry"
)

// Engine CLI command lines as issued by docker.Client.
const (
	psCmd    = "docker ps -a --no-trunc --format {{.ID}}|{{.Names}}|{{.Image}}|{{.Ports}}|{{.Status}}|{{.Labels}}"
	statsCmd = "docker stats --no-stream --format {{.ID}}|{{.Name}}|{{.CPUPerc}}|{{.MemUsage}}"
)

func configCmd(t *testing.T, s *cliState, path string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&s.configPath, "config", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))
	return cmd
}

func TestInitLayersConfig(t *testing.T) {
	t.Setenv("SPARK_REFRESH_INTERVAL", "")
	t.Setenv("SPARK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh:\n  interval: 3s\nlogging:\n  level: error\n"), 0o600))

	s := &cliState{overrides: config.CLIOverrides{SortBy: "mem"}}
	require.NoError(t, s.init(configCmd(t, s, path)))
	require.NotNil(t, s.app)

	cfg := s.app.cfg
	assert.Equal(t, 3*time.Second, cfg.Refresh.Interval.Duration)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "mem", cfg.Process.SortBy)
	assert.Equal(t, models.SortMemory, s.app.sortBy())
	assert.True(t, cfg.Process.TreeMode)
	assert.NotEmpty(t, s.app.registry.Collectors())
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh:\n  interval: 0s\n"), 0o600))

	s := &cliState{}
	err := s.init(configCmd(t, s, path))
	assert.ErrorContains(t, err, "refresh.interval")
}

func testApp(fake *shelltest.Fake) *app {
	cfg := config.DefaultConfig()
	cfg.Refresh.Interval = config.Duration{Duration: 5 * time.Millisecond}
	cfg.Refresh.DockerPoll = config.Duration{Duration: 5 * time.Millisecond}
	cfg.Refresh.DockerPull = config.Duration{Duration: 5 * time.Millisecond}
	return &app{
		cfg:     cfg,
		logger:  zap.NewNop(),
		metrics: telemetry.New(),
		docker:  docker.NewClient(fake, "docker", nil),
	}
}

func TestContainerActionNoWait(t *testing.T) {
	fake := shelltest.New().
		On("docker restart aaa", shelltest.Response{}).
		On("docker restart bbb", shelltest.Response{Stderr: "Error: No such container: bbb"})
	var out bytes.Buffer

	err := testApp(fake).containerAction(context.Background(), &out, models.ActionRestart, []string{"aaa", "bbb"}, "", false, time.Second)
	assert.EqualError(t, err, "1 of 2 container operations failed")
	assert.Contains(t, out.String(), "restart aaa: done")
	assert.Contains(t, out.String(), "restart bbb failed: Error: No such container: bbb")
}

func TestContainerActionWaitsForGroupState(t *testing.T) {
	fake := shelltest.New().
		On(psCmd, shelltest.Response{Stdout: "aaa|web|nginx||Up 2 hours|com.docker.compose.project=shop\n" +
			"bbb|db|postgres||Up 2 hours|com.docker.compose.project=shop\n"}).
		On(statsCmd, shelltest.Response{Stdout: "aaa|web|0.5%|1MiB / 1GiB\n"}).
		On("docker stop aaa", shelltest.Response{}).
		On("docker stop bbb", shelltest.Response{})
	a := testApp(fake)

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- a.containerAction(context.Background(), &out, models.ActionStop, nil, "shop", true, 5*time.Second)
	}()

	// Both containers report stopped once the commands have run.
	require.Eventually(t, func() bool {
		calls := fake.Calls()
		stops := 0
		for _, c := range calls {
			if c == "docker stop aaa" || c == "docker stop bbb" {
				stops++
			}
		}
		return stops == 2
	}, 2*time.Second, time.Millisecond)
	fake.On(psCmd, shelltest.Response{Stdout: "aaa|web|nginx||Exited (0) 1 second ago|com.docker.compose.project=shop\n" +
		"bbb|db|postgres||Exited (0) 1 second ago|com.docker.compose.project=shop\n"})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("containerAction did not return")
	}
	assert.Contains(t, out.String(), "stop aaa: done")
	assert.Contains(t, out.String(), "stop bbb: done")
}

func TestContainerActionUnknownGroup(t *testing.T) {
	fake := shelltest.New().
		On(psCmd, shelltest.Response{Stdout: "aaa|web|nginx||Up 2 hours|\n"}).
		On(statsCmd, shelltest.Response{})
	err := testApp(fake).containerAction(context.Background(), &bytes.Buffer{}, models.ActionStop, nil, "shop", true, time.Second)
	assert.EqualError(t, err, `no containers in group "shop"`)
}

func TestContainerActionTimeoutListsUnconfirmed(t *testing.T) {
	fake := shelltest.New().
		On(psCmd, shelltest.Response{Stdout: "aaa|web|nginx||Up 2 hours|\n"}).
		On(statsCmd, shelltest.Response{}).
		On("docker stop aaa", shelltest.Response{})
	var out bytes.Buffer

	err := testApp(fake).containerAction(context.Background(), &out, models.ActionStop, []string{"aaa"}, "", true, 200*time.Millisecond)
	assert.ErrorContains(t, err, "timed out")
	assert.Contains(t, out.String(), "stop aaa: done")
	assert.Contains(t, out.String(), "aaa: still waiting to be stopped")
}

func TestRenderSection(t *testing.T) {
	a := &app{cfg: config.DefaultConfig(), logger: zap.NewNop()}
	var buf bytes.Buffer

	require.NoError(t, a.renderSection(&buf, "ports", nil))
	assert.Empty(t, buf.String())

	require.NoError(t, a.renderSection(&buf, "ports", []models.PortRecord{{Proto: "tcp", Port: 8080, PID: 7, ProcessName: "node", Exe: "/usr/bin/node"}}))
	assert.Contains(t, buf.String(), "== ports")
	assert.Contains(t, buf.String(), "8080")

	buf.Reset()
	require.NoError(t, a.renderSection(&buf, "processes", map[int32]models.ProcessRecord{1: {PID: 1, Name: "init", User: "root"}}))
	assert.Contains(t, buf.String(), "== processes")
	assert.Contains(t, buf.String(), "init")
}
