// Node.js process classification. These are pure functions over a process's
// name, executable, command line and working directory so that each rule can
// be tested in isolation.
package collector

import (
	"path"
	"strings"
)

var nodeRuntimeNames = map[string]struct{}{
	"node": {}, "nodejs": {}, "bun": {}, "deno": {},
	"ts-node": {}, "tsx": {}, "ts-node-esm": {},
}

// IsNodeProcess reports whether a process runs a JavaScript/TypeScript runtime.
func IsNodeProcess(name, exe string) bool {
	if _, ok := nodeRuntimeNames[strings.ToLower(name)]; ok {
		return true
	}
	exe = strings.ToLower(exe)
	if exe == "" {
		return false
	}
	if strings.Contains(exe, "/node") || strings.Contains(exe, "/nodejs") {
		return true
	}
	if strings.Contains(exe, ".nvm/") || strings.Contains(exe, ".fnm/") || strings.Contains(exe, ".volta/") || strings.Contains(exe, "fnm_multishells") {
		return strings.HasSuffix(exe, "/node") || strings.Contains(exe, "/node/")
	}
	return false
}

// toolingMarkers exclude editor, language-server and assistant helpers. They
// are matched against the lowercase command line.
var toolingMarkers = []string{
	".vscode", "vscode-server",
	"jetbrains",
	"tsserver", "typescript-language-server",
	"eslint_d", "eslint-server",
	"prettierd", "prettier-server",
	"language-server", "lsp-server", "/lsp/",
	"--node-ipc", "extensionhost",
	"claude-code", "@anthropic",
	"copilot",
}

var (
	projectScriptPaths = []string{"/src/", "/dist/", "/build/", "/app/", "/server/", "/api/"}
	projectScriptNames = []string{"index.", "server.", "app.", "main.", "start."}
	projectCwdMarkers  = []string{"/projects/", "/repos/", "/workspace/", "/work/", "/dev/", "/src/"}
)

// IsProjectProcess reports whether a runtime process appears to be running a
// user project rather than editor tooling or a globally installed binary.
// hasPackageJSON tells whether cwd contains a package.json.
func IsProjectProcess(exe, script, cwd string, cmdline []string, hasPackageJSON bool) bool {
	cmd := strings.ToLower(strings.Join(cmdline, " "))
	exeLower := strings.ToLower(exe)

	if strings.Contains(exeLower, ".vscode") || strings.Contains(exeLower, "code-server") {
		return false
	}
	if strings.Contains(cmd, "electron") && !strings.Contains(cmd, "electron-") {
		return false
	}
	if strings.Contains(exeLower, ".jetbrains") || strings.Contains(exeLower, "/jetbrains/") {
		return false
	}
	for _, marker := range toolingMarkers {
		if strings.Contains(cmd, marker) {
			return false
		}
	}

	if strings.HasPrefix(exeLower, "/usr/lib/") || strings.HasPrefix(exeLower, "/usr/share/") || strings.Contains(exeLower, "/snap/") {
		if !strings.HasPrefix(script, "~") && !strings.HasPrefix(script, "/home/") {
			return false
		}
	}

	if strings.Contains(cmd, "npm-cli.js") && strings.Contains(cmd, "prefix") {
		return false
	}
	if strings.Contains(cmd, "yarn/") && strings.Contains(cmd, "berry") {
		return false
	}

	if script != unknownField {
		if strings.HasPrefix(script, "~") || strings.HasPrefix(script, "/home/") || strings.HasPrefix(script, "./") {
			return true
		}
		for _, p := range projectScriptPaths {
			if strings.Contains(script, p) {
				return true
			}
		}
		for _, n := range projectScriptNames {
			if strings.Contains(script, n) {
				return true
			}
		}
	}

	if cwd != "" {
		cwdLower := strings.ToLower(cwd)
		for _, m := range projectCwdMarkers {
			if strings.Contains(cwdLower, m) {
				return true
			}
		}
		if hasPackageJSON {
			return true
		}
	}

	return script != unknownField
}

var scriptExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".tsx", ".jsx"}

// flagsWithValue take the next argument as their value.
var flagsWithValue = map[string]struct{}{
	"-e": {}, "--eval": {}, "-p": {}, "--print": {},
	"-r": {}, "--require": {}, "--import": {},
}

// ExtractScriptPath returns the script a runtime was started with: the first
// argument after the interpreter that is not a flag or a flag value. Script
// paths under home are shortened to "~". It returns "-" when there is none.
func ExtractScriptPath(cmdline []string, home string) string {
	for i := 1; i < len(cmdline); i++ {
		arg := cmdline[i]
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		if _, ok := flagsWithValue[cmdline[i-1]]; ok {
			continue
		}
		if looksLikeScript(arg) && home != "" && strings.HasPrefix(arg, home) {
			return "~" + strings.TrimPrefix(arg, home)
		}
		return arg
	}
	return unknownField
}

func looksLikeScript(arg string) bool {
	if strings.ContainsAny(arg, `/\`) {
		return true
	}
	lower := strings.ToLower(arg)
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ScriptDisplayName returns the script's file stem, or fallback when the
// script is unknown.
func ScriptDisplayName(script, fallback string) string {
	if script == unknownField || script == "" {
		return fallback
	}
	base := path.Base(strings.ReplaceAll(script, `\`, "/"))
	if base == "." || base == "/" {
		return fallback
	}
	if stem := strings.TrimSuffix(base, path.Ext(base)); stem != "" {
		return stem
	}
	return base
}

// UsesNVM reports whether a process was launched through nvm.
func UsesNVM(name, script string, cmdline []string) bool {
	if strings.EqualFold(name, "nvm") {
		return true
	}
	scriptLower := strings.ToLower(script)
	if strings.Contains(scriptLower, "/.nvm/") || strings.Contains(scriptLower, "/nvm/") {
		return true
	}
	for _, arg := range cmdline {
		lower := strings.ToLower(arg)
		if lower == "nvm" ||
			strings.HasPrefix(lower, "nvm ") ||
			strings.HasSuffix(lower, " nvm") ||
			strings.Contains(lower, " nvm ") ||
			strings.HasSuffix(lower, "/nvm") ||
			strings.HasSuffix(lower, `\nvm`) {
			return true
		}
	}
	return false
}

// NodeVersionFromPath extracts a version segment such as "v20.10.0" from a
// version-manager binary path.
func NodeVersionFromPath(exe string) (string, bool) {
	for _, part := range strings.Split(exe, "/") {
		if len(part) > 1 && part[0] == 'v' && part[1] >= '0' && part[1] <= '9' {
			return part, true
		}
	}
	return "", false
}

// IsNodeUtility reports whether a record is tooling (nvm, a "cli" package)
// rather than a long-running service.
func IsNodeUtility(name, script, project string, usesNVM bool) bool {
	if usesNVM {
		return true
	}
	for _, text := range []string{name, script, project} {
		if containsToken(text, "nvm") || containsToken(text, "cli") {
			return true
		}
	}
	return false
}

// containsToken reports whether text contains token as a whole alphanumeric word.
func containsToken(text, token string) bool {
	start := -1
	for i := 0; i <= len(text); i++ {
		alnum := i < len(text) && isAlnum(text[i])
		if alnum {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if strings.EqualFold(text[start:i], token) {
				return true
			}
			start = -1
		}
	}
	return false
}

func isAlnum(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
