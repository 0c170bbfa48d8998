package collector

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell/shelltest"
)

const pm2Fixture = `[
{"pm_id":1,"name":"web","pid":102,"pm2_env":{"status":"online","exec_mode":"fork_mode","pm_uptime":40000},"monit":{"cpu":7.5,"memory":5000}},
{"pm_id":0,"name":"worker","pid":0,"pm2_env":{"status":"stopped","pm_exec_path":"/home/u/worker/main.js"},"monit":{"cpu":0,"memory":0}}
]`

func nodeFixture(t *testing.T) (*NodeCollector, *shelltest.Fake) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range map[string]string{
		"/home/u/api/package.json": `{"name":"api-service","version":"1.0.0"}`,
		"/home/u/api/server.js":    "",
		"/home/u/web/package.json": `{"name":"web"}`,
	} {
		require.NoError(t, fs.MkdirAll("/home/u/api", 0o755))
		require.NoError(t, fs.MkdirAll("/home/u/web", 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}

	now := time.UnixMilli(100000)
	nvmNode := "/home/u/.nvm/versions/node/v20.1.0/bin/node"
	src := &staticSource{procs: []RawProcess{
		{PID: 101, Name: "node", Exe: nvmNode, Cmdline: []string{"node", "/home/u/api/server.js"}, Cwd: "/home/u/api", CPU: 2, RSS: 200, CreateTime: 90000},
		{PID: 100, Name: "node", Exe: nvmNode, Cmdline: []string{"node", "/home/u/api/server.js"}, Cwd: "/home/u/api", CPU: 1, RSS: 100, CreateTime: 80000},
		{PID: 102, Name: "node", Exe: "/usr/bin/node", Cmdline: []string{"node", "/home/u/web/index.js"}, Cwd: "/home/u/web", CPU: 0.1, RSS: 300},
		{PID: 103, Name: "node", Exe: "/usr/bin/node", Cmdline: []string{"node", "/usr/lib/node_modules/typescript/lib/tsserver.js"}},
		{PID: 104, Name: "python3", Exe: "/usr/bin/python3", Cmdline: []string{"python3", "/home/u/app.py"}},
	}}

	fake := shelltest.New().
		On("pm2 ping", shelltest.Response{Stdout: "pong"}).
		On("pm2 jlist", shelltest.Response{Stdout: pm2Fixture}).
		On("/usr/bin/node --version", shelltest.Response{Stdout: "v18.19.0\n"})

	pm2 := NewPM2Client(fake, "pm2", nil)
	pm2.now = func() time.Time { return now }

	c := NewNodeCollector(NodeCollectorOptions{
		Source:   src,
		PM2:      pm2,
		Projects: NewProjectResolver(fs, nil, "/home/u", 0),
		Runner:   fake,
		Home:     "/home/u",
	})
	c.now = func() time.Time { return now }
	return c, fake
}

func TestCollectNodeProcesses(t *testing.T) {
	c, _ := nodeFixture(t)

	got, err := c.CollectNodeProcesses(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 3)

	worker, web, api := got[0], got[1], got[2]

	require.NotNil(t, worker.PM2)
	assert.Equal(t, "worker", worker.Name)
	assert.Equal(t, int32(0), worker.PID)
	assert.Equal(t, "/home/u/worker/main.js", worker.Script)
	assert.Equal(t, "stopped", worker.PM2.Status)
	assert.Nil(t, worker.UptimeSecs)

	require.NotNil(t, web.PM2)
	assert.Equal(t, int32(102), web.PID)
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, "web", web.ProjectName)
	assert.Equal(t, 7.5, web.CPU)
	assert.Equal(t, "v18.19.0", web.NodeVersion)
	require.NotNil(t, web.UptimeSecs)
	assert.Equal(t, uint64(60), *web.UptimeSecs)

	assert.Nil(t, api.PM2)
	assert.Equal(t, int32(100), api.PID)
	assert.Equal(t, "server", api.Name)
	assert.Equal(t, "~/api/server.js", api.Script)
	assert.Equal(t, "api-service", api.ProjectName)
	assert.Equal(t, "v20.1.0", api.NodeVersion)
	assert.Equal(t, 2, api.WorkerCount)
	assert.InDelta(t, 3.0, api.CPU, 1e-9)
	assert.Equal(t, uint64(300), api.MemoryBytes)
	require.NotNil(t, api.UptimeSecs)
	assert.Equal(t, uint64(20), *api.UptimeSecs)
}

func TestCollectNodeProcessesFilter(t *testing.T) {
	c, _ := nodeFixture(t)
	ctx := context.Background()

	online, err := c.CollectNodeProcesses(ctx, "ONLINE")
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "web", online[0].Name)

	byPID, err := c.CollectNodeProcesses(ctx, "100")
	require.NoError(t, err)
	require.Len(t, byPID, 1)
	assert.Equal(t, "server", byPID[0].Name)

	byProject, err := c.CollectNodeProcesses(ctx, "api-serv")
	require.NoError(t, err)
	assert.Len(t, byProject, 1)
}

func TestCollectNodeProcessesWithoutPM2(t *testing.T) {
	c, _ := nodeFixture(t)
	c.pm2 = NewPM2Client(shelltest.New(), "pm2", nil)

	got, err := c.CollectNodeProcesses(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int32(100), got[0].PID)
	assert.Equal(t, int32(102), got[1].PID)
	assert.Equal(t, "index", got[1].Name)
	assert.Nil(t, got[1].PM2)
	assert.False(t, c.IsPM2Running(context.Background()))
}

func TestNodeVersionIsCachedPerBinary(t *testing.T) {
	c, fake := nodeFixture(t)
	ctx := context.Background()

	_, err := c.CollectNodeProcesses(ctx, "")
	require.NoError(t, err)
	_, err = c.CollectNodeProcesses(ctx, "")
	require.NoError(t, err)

	versionCalls := 0
	for _, call := range fake.Calls() {
		if call == "/usr/bin/node --version" {
			versionCalls++
		}
	}
	assert.Equal(t, 1, versionCalls)
}

func TestMergeClusterWorkers(t *testing.T) {
	pm2 := &models.PM2Info{PMID: 3}
	in := []models.NodeProcessRecord{
		{PID: 30, Script: "a.js", CPU: 1, MemoryBytes: 10, WorkerCount: 1},
		{PID: 20, Script: "a.js", CPU: 2, MemoryBytes: 20, WorkerCount: 1, UsesNVM: true},
		{PID: 40, Script: "b.js", WorkerCount: 1},
		{PID: 50, Script: "a.js", PM2: pm2, WorkerCount: 1},
	}

	out := mergeClusterWorkers(in)

	require.Len(t, out, 3)
	assert.Equal(t, int32(20), out[0].PID)
	assert.Equal(t, 2, out[0].WorkerCount)
	assert.Equal(t, 3.0, out[0].CPU)
	assert.Equal(t, uint64(30), out[0].MemoryBytes)
	assert.True(t, out[0].UsesNVM)
	assert.Equal(t, int32(40), out[1].PID)
	assert.Same(t, pm2, out[2].PM2)
}

func TestGroupNodeProcesses(t *testing.T) {
	recs := []models.NodeProcessRecord{
		{Name: "server", ProjectName: "shop"},
		{Name: "worker", ProjectName: " shop "},
		{Name: "lone"},
	}
	rows := GroupNodeProcesses(recs)
	assert.Equal(t, []models.NodeRow{
		{Kind: models.RowGroup, Name: "shop", Count: 2},
		{Kind: models.RowItem, Index: 0},
		{Kind: models.RowItem, Index: 1},
		{Kind: models.RowGroup, Name: "lone", Count: 1},
		{Kind: models.RowItem, Index: 2},
	}, rows)
}

func TestGroupNodeProcessesSplitsUtilities(t *testing.T) {
	recs := []models.NodeProcessRecord{
		{Name: "create-app-cli", Script: "/usr/lib/node_modules/create-app/cli.js"},
		{Name: "server", ProjectName: "shop"},
		{Name: "use", Script: "/home/u/.nvm/nvm-exec.js", UsesNVM: true},
		{Name: "worker", ProjectName: "shop"},
	}
	rows := GroupNodeProcesses(recs)
	assert.Equal(t, []models.NodeRow{
		{Kind: models.RowGroup, Name: "shop", Count: 2},
		{Kind: models.RowItem, Index: 1},
		{Kind: models.RowItem, Index: 3},
		{Kind: models.RowUtilities, Name: UtilitiesTitle, Count: 2},
		{Kind: models.RowGroup, Name: "create-app-cli", Count: 1},
		{Kind: models.RowItem, Index: 0},
		{Kind: models.RowGroup, Name: "use", Count: 1},
		{Kind: models.RowItem, Index: 2},
	}, rows)
}

func TestGroupNodeProcessesOnlyUtilities(t *testing.T) {
	rows := GroupNodeProcesses([]models.NodeProcessRecord{{Name: "nvm", UsesNVM: true}})
	require.Len(t, rows, 3)
	assert.Equal(t, models.RowUtilities, rows[0].Kind)
	assert.Equal(t, models.NodeRow{Kind: models.RowItem, Index: 0}, rows[2])
}

func TestFormatUptime(t *testing.T) {
	secs := func(v uint64) *uint64 { return &v }
	assert.Equal(t, "-", FormatUptime(nil))
	assert.Equal(t, "-", FormatUptime(secs(0)))
	assert.Equal(t, "9s", FormatUptime(secs(9)))
	assert.Equal(t, "4m 10s", FormatUptime(secs(250)))
	assert.Equal(t, "2h 5m", FormatUptime(secs(7500)))
	assert.Equal(t, "3d 4h", FormatUptime(secs(273600)))
}
