package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNodeProcess(t *testing.T) {
	assert.True(t, IsNodeProcess("node", ""))
	assert.True(t, IsNodeProcess("bun", "/home/u/.bun/bin/bun"))
	assert.True(t, IsNodeProcess("ts-node-esm", ""))
	assert.True(t, IsNodeProcess("MainThread", "/usr/bin/nodejs"))
	assert.True(t, IsNodeProcess("v8", "/home/u/.volta/tools/image/node/20.0.0/bin/node"))
	assert.False(t, IsNodeProcess("python3", "/usr/bin/python3"))
	assert.False(t, IsNodeProcess("bash", ""))
}

func TestIsProjectProcess(t *testing.T) {
	cases := []struct {
		name    string
		exe     string
		script  string
		cwd     string
		cmdline []string
		pkgJSON bool
		want    bool
	}{
		{"vscode server", "/home/u/.vscode-server/bin/abc/node", "~/.vscode-server/x.js", "", []string{"node", "x.js"}, false, false},
		{"tsserver", "/usr/bin/node", "~/lib/tsserver.js", "", []string{"node", "/home/u/lib/tsserver.js"}, false, false},
		{"electron app", "/usr/bin/node", "-", "", []string{"electron", "."}, false, false},
		{"electron builder", "/usr/bin/node", "~/app/node_modules/.bin/electron-builder", "", []string{"node", "electron-builder"}, false, true},
		{"extension host", "/usr/bin/node", "-", "", []string{"node", "--node-ipc"}, false, false},
		{"copilot", "/usr/bin/node", "~/copilot/agent.js", "", []string{"node", "copilot/agent.js"}, false, false},
		{"global binary", "/usr/lib/nodejs/node", "/usr/lib/node_modules/serve/cli.js", "", []string{"node", "/usr/lib/node_modules/serve/cli.js"}, false, false},
		{"global binary home script", "/usr/lib/nodejs/node", "~/api/index.js", "", []string{"node", "/home/u/api/index.js"}, false, true},
		{"yarn berry", "/usr/bin/node", "~/.yarn/berry/yarn.js", "", []string{"node", "/home/u/.yarn/berry/yarn/yarn.js"}, false, false},
		{"home script", "/usr/bin/node", "~/api/server.js", "", []string{"node", "/home/u/api/server.js"}, false, true},
		{"dist script", "/usr/bin/node", "/opt/svc/dist/main.js", "", []string{"node", "/opt/svc/dist/main.js"}, false, true},
		{"project cwd", "/usr/bin/node", "-", "/home/u/Projects/shop", []string{"node"}, false, true},
		{"package.json cwd", "/usr/bin/node", "-", "/tmp/x", []string{"node"}, true, true},
		{"bare repl", "/usr/bin/node", "-", "/tmp", []string{"node"}, false, false},
		{"npx binary", "/usr/bin/node", "vite", "", []string{"node", "vite"}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsProjectProcess(tc.exe, tc.script, tc.cwd, tc.cmdline, tc.pkgJSON)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractScriptPath(t *testing.T) {
	const home = "/home/u"
	cases := []struct {
		cmdline []string
		want    string
	}{
		{[]string{"node", "--inspect", "/home/u/app/index.js"}, "~/app/index.js"},
		{[]string{"node", "-r", "dotenv/config", "server.js"}, "server.js"},
		{[]string{"node", "-e", "console.log(1)"}, "-"},
		{[]string{"node", "--import", "tsx", "src/main.ts"}, "src/main.ts"},
		{[]string{"node", "/opt/app/main.mjs"}, "/opt/app/main.mjs"},
		{[]string{"npx", "vite"}, "vite"},
		{[]string{"node"}, "-"},
		{nil, "-"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractScriptPath(tc.cmdline, home), "%v", tc.cmdline)
	}
}

func TestScriptDisplayName(t *testing.T) {
	assert.Equal(t, "server", ScriptDisplayName("~/app/server.js", "node"))
	assert.Equal(t, "main", ScriptDisplayName(`C:\app\main.ts`, "node"))
	assert.Equal(t, "vite", ScriptDisplayName("vite", "node"))
	assert.Equal(t, "node", ScriptDisplayName("-", "node"))
}

func TestUsesNVM(t *testing.T) {
	assert.True(t, UsesNVM("nvm", "-", nil))
	assert.True(t, UsesNVM("node", "/home/u/.nvm/versions/node/v20/lib/x.js", nil))
	assert.True(t, UsesNVM("bash", "-", []string{"bash", "-c", "source ~/.nvm/nvm.sh && nvm use 18"}))
	assert.True(t, UsesNVM("node", "-", []string{"/usr/local/bin/nvm"}))
	assert.False(t, UsesNVM("node", "~/app/index.js", []string{"node", "/home/u/app/index.js"}))
	assert.False(t, UsesNVM("node", "-", []string{"node", "envmgr"}))
}

func TestNodeVersionFromPath(t *testing.T) {
	v, ok := NodeVersionFromPath("/home/u/.nvm/versions/node/v20.10.0/bin/node")
	assert.True(t, ok)
	assert.Equal(t, "v20.10.0", v)

	_, ok = NodeVersionFromPath("/home/vagrant/bin/node")
	assert.False(t, ok)
	_, ok = NodeVersionFromPath("/usr/bin/node")
	assert.False(t, ok)
}

func TestIsNodeUtility(t *testing.T) {
	assert.False(t, IsNodeUtility("api", "~/api/index.js", "api", false))
	assert.True(t, IsNodeUtility("create-app-cli", "-", "", false))
	assert.True(t, IsNodeUtility("x", "~/nvm/use.js", "", false))
	assert.True(t, IsNodeUtility("api", "-", "", true))
	assert.False(t, IsNodeUtility("client", "~/client/index.js", "client", false))
}

func TestContainsToken(t *testing.T) {
	assert.True(t, containsToken("my_cli-tool", "cli"))
	assert.True(t, containsToken("CLI", "cli"))
	assert.False(t, containsToken("clinic", "cli"))
	assert.False(t, containsToken("", "cli"))
}
