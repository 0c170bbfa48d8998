// Project resolution: maps a script or working directory to the "name" of the
// nearest enclosing package.json.
package collector

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/arch-ai/spark/internal/cache"
)

const defaultMaxProjectDepth = 15

// ProjectResolver finds project names on a filesystem. Lookups are cached
// per starting directory for the resolver's lifetime.
type ProjectResolver struct {
	fs       afero.Fs
	cache    *cache.ProjectCache
	home     string
	maxDepth int
}

// NewProjectResolver creates a resolver. A nil fs uses the OS filesystem and
// a nil cache disables caching.
func NewProjectResolver(fs afero.Fs, projects *cache.ProjectCache, home string, maxDepth int) *ProjectResolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if projects == nil {
		projects = cache.NewProjectCache()
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxProjectDepth
	}
	return &ProjectResolver{fs: fs, cache: projects, home: home, maxDepth: maxDepth}
}

// FromScript resolves the project of a script. Relative scripts are resolved
// against cwd.
func (r *ProjectResolver) FromScript(script, cwd string) (string, bool) {
	dir, ok := r.scriptDir(script, cwd)
	if !ok {
		return "", false
	}
	return r.ForDir(dir)
}

// FromProcess tries the script directory first, then cwd.
func (r *ProjectResolver) FromProcess(script, cwd string) (string, bool) {
	if name, ok := r.FromScript(script, cwd); ok {
		return name, true
	}
	if cwd == "" {
		return "", false
	}
	return r.ForDir(cwd)
}

// ForDir returns the package name found walking up from dir.
func (r *ProjectResolver) ForDir(dir string) (string, bool) {
	return r.cache.Lookup(filepath.Clean(dir), r.findPackageName)
}

// HasPackageJSON reports whether dir directly contains a package.json file.
func (r *ProjectResolver) HasPackageJSON(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := r.fs.Stat(filepath.Join(dir, "package.json"))
	return err == nil && !info.IsDir()
}

func (r *ProjectResolver) findPackageName(start string) (string, bool) {
	dir := start
	for depth := 0; depth <= r.maxDepth; depth++ {
		if r.HasPackageJSON(dir) {
			data, err := afero.ReadFile(r.fs, filepath.Join(dir, "package.json"))
			if err == nil {
				if name, ok := PackageName(data); ok {
					return name, true
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func (r *ProjectResolver) scriptDir(script, cwd string) (string, bool) {
	if !isScriptPath(script) {
		return "", false
	}
	p := script
	if strings.HasPrefix(p, "~") {
		if r.home == "" {
			return "", false
		}
		p = r.home + strings.TrimPrefix(p, "~")
	}
	if !filepath.IsAbs(p) {
		if cwd == "" {
			return "", false
		}
		p = filepath.Join(cwd, p)
	}
	if info, err := r.fs.Stat(p); err == nil && !info.IsDir() {
		p = filepath.Dir(p)
	}
	return p, true
}

func isScriptPath(script string) bool {
	if script == unknownField || script == "" {
		return false
	}
	return looksLikeScript(script)
}

// PackageName scans package.json content for the top-level "name" string.
// Nested objects and non-string values are skipped.
func PackageName(data []byte) (string, bool) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '"':
			key, next := readJSONString(data, i+1)
			i = next
			if depth != 1 {
				continue
			}
			j := skipSpace(data, i+1)
			if j >= len(data) || data[j] != ':' {
				continue
			}
			j = skipSpace(data, j+1)
			if j >= len(data) || data[j] != '"' {
				continue
			}
			value, end := readJSONString(data, j+1)
			i = end
			if key == "name" {
				return value, value != ""
			}
		}
	}
	return "", false
}

// readJSONString reads a string body starting after its opening quote. It
// returns the unescaped text and the index of the closing quote.
func readJSONString(data []byte, i int) (string, int) {
	var b strings.Builder
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			b.WriteByte(data[i])
		case c == '"':
			return b.String(), i
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), i
}

func skipSpace(data []byte, i int) int {
	for i < len(data) && (data[i] == ' ' || data[i] == '\t' || data[i] == '\n' || data[i] == '\r') {
		i++
	}
	return i
}
