package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arch-ai/spark/internal/collector"
	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "-", formatBytes(0))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "10 MiB", formatBytes(10*1024*1024))
}

func TestFormatCPU(t *testing.T) {
	assert.Equal(t, "12.3%", formatCPU(12.345))
	assert.Equal(t, "0.0%", formatCPU(0))
}

func TestFilterPorts(t *testing.T) {
	rows := []models.PortRecord{
		{Proto: "tcp", Port: 8080, ProcessName: "node", ProjectName: "shop"},
		{Proto: "tcp", Port: 5432, ProcessName: "postgres"},
	}
	assert.Len(t, filterPorts(rows, ""), 2)
	assert.Equal(t, []models.PortRecord{rows[0]}, filterPorts(rows, "SHOP"))
	assert.Equal(t, []models.PortRecord{rows[1]}, filterPorts(rows, "5432"))
}

func TestRenderContainersEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderContainers(&buf, nil, nil))
	assert.Equal(t, docker.EmptyMessage+"\n", buf.String())
}

func TestRenderDockerFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderDockerFrame(&buf, nil, nil, 0, nil))
	assert.Equal(t, loadingMessage+"\n", buf.String())

	buf.Reset()
	outage := fmt.Errorf("listing containers: %w", docker.ErrEngineUnavailable)
	require.NoError(t, renderDockerFrame(&buf, nil, nil, 3, outage))
	assert.Equal(t, docker.EmptyMessage+"\n"+
		"docker: last poll failed: listing containers: container engine CLI not available\n", buf.String())

	buf.Reset()
	records, rows := docker.GroupContainers([]models.ContainerRecord{
		{ID: "0123456789abcdef", Name: "api", Status: "Up 1 minute", Running: true, GroupName: "shop"},
	}, models.SortCPU, models.Desc)
	require.NoError(t, renderDockerFrame(&buf, records, rows, 1, nil))
	assert.Contains(t, buf.String(), "api")
	assert.NotContains(t, buf.String(), "last poll failed")
}

func TestRenderNodeUtilitiesSection(t *testing.T) {
	records := []models.NodeProcessRecord{
		{PID: 10, Name: "server", Script: "/srv/shop/server.js", ProjectName: "shop"},
		{PID: 11, Name: "create-app-cli", Script: "-", UsesNVM: true},
	}
	var buf bytes.Buffer
	require.NoError(t, renderNode(&buf, records, collector.GroupNodeProcesses(records)))
	out := buf.String()
	assert.Contains(t, out, "== Utils (1)")
	assert.Less(t, strings.Index(out, "server"), strings.Index(out, "== Utils"))
	assert.Greater(t, strings.Index(out, "create-app-cli"), strings.Index(out, "== Utils"))
}

func TestRenderContainersGroups(t *testing.T) {
	records, rows := docker.GroupContainers([]models.ContainerRecord{
		{ID: "0123456789abcdef", Name: "api", Image: "node:20", Status: "Up 2 hours", Running: true, GroupName: "shop", GroupPath: "/srv/shop", Activity: 7200, Ports: "3000", InternalPorts: "3000"},
	}, models.SortCPU, models.Desc)

	var buf bytes.Buffer
	require.NoError(t, renderContainers(&buf, records, rows))
	out := buf.String()
	assert.Contains(t, out, "shop (/srv/shop) [1/1 running]")
	assert.Contains(t, out, "└─ api")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestRenderProcessesFollowsRowOrder(t *testing.T) {
	records := map[int32]models.ProcessRecord{
		1:  {PID: 1, Name: "init", User: "root"},
		20: {PID: 20, Name: "sshd", User: "root", MemoryBytes: 2048},
	}
	rows := []models.ProcessTreeRow{{PID: 1}, {PID: 20, Prefix: "└─ "}, {PID: 99}}

	var buf bytes.Buffer
	require.NoError(t, renderProcesses(&buf, records, rows))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "init")
	assert.Contains(t, string(lines[2]), "└─ sshd")
	assert.Contains(t, string(lines[2]), "2.0 KiB")
}

func TestPM2Column(t *testing.T) {
	assert.Equal(t, "-", pm2Column(nil))
	assert.Equal(t, "#3 online cluster ↻2", pm2Column(&models.PM2Info{PMID: 3, Status: "online", Mode: "cluster", Restarts: 2}))
	assert.Equal(t, "#0 stopped fork", pm2Column(&models.PM2Info{Status: "stopped", Mode: "fork"}))
}
