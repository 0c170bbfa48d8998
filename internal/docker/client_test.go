package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell/shelltest"
)

const (
	webID = "aaaaaaaaaaaa1111111111111111111111111111111111111111111111111111"
	dbID  = "bbbbbbbbbbbb2222222222222222222222222222222222222222222222222222"
)

var (
	sampleListing = "" +
		webID + "|web|nginx:1.25|0.0.0.0:8080->80/tcp|Up 2 hours|com.docker.compose.project=shop,com.docker.compose.project.working_dir=/srv/shop\n" +
		dbID + "|db|postgres:16|5432/tcp|Exited (0) 3 days ago|\n" +
		"|ghost|busybox||Created|\n"
	sampleStats = "aaaaaaaaaaaa|web|1.5%|10MiB / 1GiB\n"
)

func TestParseListingJoinsStatsByShortID(t *testing.T) {
	recs := ParseListing([]byte(sampleListing), []byte(sampleStats))
	require.Len(t, recs, 2)

	web := recs[0]
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, "nginx:1.25", web.Image)
	assert.True(t, web.Running)
	assert.Equal(t, "8080", web.Ports)
	assert.Equal(t, "80", web.InternalPorts)
	assert.InDelta(t, 1.5, web.CPU, 1e-9)
	assert.Equal(t, uint64(10*1024*1024), web.MemoryBytes)
	assert.Equal(t, "shop", web.GroupName)
	assert.Equal(t, "/srv/shop", web.GroupPath)
	assert.Equal(t, uint64(7200), web.Activity)

	db := recs[1]
	assert.False(t, db.Running)
	assert.Equal(t, models.OtherGroup, db.GroupName)
	assert.Equal(t, "5432", db.Ports)
	assert.Equal(t, "-", db.InternalPorts)
	assert.Zero(t, db.CPU)
	assert.Zero(t, db.MemoryBytes)
	assert.Equal(t, uint64(259200), db.Activity)
}

func TestListContainers(t *testing.T) {
	fake := shelltest.New().
		On("docker ps -a --no-trunc --format "+listFormat, shelltest.Response{Stdout: sampleListing}).
		On("docker stats --no-stream --format "+statsFormat, shelltest.Response{Stdout: sampleStats})
	recs, err := NewClient(fake, "", nil).ListContainers(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestListContainersEmptySkipsStats(t *testing.T) {
	fake := shelltest.New().
		On("docker ps -a --no-trunc --format "+listFormat, shelltest.Response{Stdout: "\n"})
	recs, err := NewClient(fake, "docker", nil).ListContainers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.Len(t, fake.Calls(), 1)
}

func TestListContainersEngineMissing(t *testing.T) {
	_, err := NewClient(shelltest.New(), "docker", nil).ListContainers(context.Background())
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestContainerNamesIndexesShortIDs(t *testing.T) {
	fake := shelltest.New().
		On("docker ps --no-trunc --format "+namesFormat, shelltest.Response{Stdout: webID + " web\n"})
	names, err := NewClient(fake, "docker", nil).ContainerNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "web", names[webID])
	assert.Equal(t, "web", names["aaaaaaaaaaaa"])
}

func TestParseBindingRows(t *testing.T) {
	out := "abc|api|node:20|0.0.0.0:3000->3000/tcp, 9229/tcp|com.docker.compose.project=shop\n" +
		"def|cache|redis|6379/tcp|\n"
	rows := ParseBindingRows([]byte(out))
	require.Len(t, rows, 1)
	assert.Equal(t, models.PortRecord{
		Proto:       "tcp",
		Port:        3000,
		ProcessName: "docker:api",
		Exe:         "image:node:20 int:3000",
		ContainerID: "abc",
		GroupName:   "shop",
		ProjectName: "shop",
	}, rows[0])
}

func TestLoadContainerEnv(t *testing.T) {
	fake := shelltest.New().
		On("docker inspect --format "+envFormat+" abc", shelltest.Response{Stdout: "PATH=/usr/bin\n\nNODE_ENV=production\n"})
	env, err := NewClient(fake, "docker", nil).LoadContainerEnv(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"PATH=/usr/bin", "NODE_ENV=production"}, env)
}

func TestDoReportsStderr(t *testing.T) {
	fake := shelltest.New().
		On("docker stop abc", shelltest.Response{Stderr: "Error: No such container: abc\n"})
	c := NewClient(fake, "docker", nil)

	err := c.StopContainer(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker stop abc")

	fake.On("docker start abc", shelltest.Response{})
	assert.NoError(t, c.StartContainer(context.Background(), "abc"))
}

func TestClientAsCollector(t *testing.T) {
	fake := shelltest.New().
		On("docker ps -a --no-trunc --format "+listFormat, shelltest.Response{Stdout: sampleListing}).
		On("docker stats --no-stream --format "+statsFormat, shelltest.Response{Stdout: sampleStats})
	c := NewClient(fake, "docker", nil)
	assert.Equal(t, "docker", c.Name())
	assert.True(t, c.IsAvailable())

	data, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, data, 2)
}
