package collector

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"name":"my-app","version":"1.0.0"}`, "my-app", true},
		{`{"dependencies":{"name":"nested"},"name":"top"}`, "top", true},
		{"{\n  \"version\": \"1\",\n  \"name\" : \"spaced\"\n}", "spaced", true},
		{`{"description":"a \"name\":\"x\" lookalike","name":"real"}`, "real", true},
		{`{"name":5}`, "", false},
		{`[{"name":"inside-array"}]`, "", false},
		{`{"name":""}`, "", false},
		{``, "", false},
	}
	for _, tc := range cases {
		got, ok := PackageName([]byte(tc.in))
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestProjectResolverWalksUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/u/proj/src/lib", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/home/u/proj/package.json", []byte(`{"name":"proj"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/home/u/proj/src/lib/run.js", nil, 0o644))

	r := NewProjectResolver(fs, nil, "/home/u", 0)

	name, ok := r.ForDir("/home/u/proj/src/lib")
	require.True(t, ok)
	assert.Equal(t, "proj", name)

	name, ok = r.FromScript("~/proj/src/lib/run.js", "")
	require.True(t, ok)
	assert.Equal(t, "proj", name)

	name, ok = r.FromScript("src/lib/run.js", "/home/u/proj")
	require.True(t, ok)
	assert.Equal(t, "proj", name)

	name, ok = r.FromProcess("vite", "/home/u/proj")
	require.True(t, ok)
	assert.Equal(t, "proj", name)

	_, ok = r.FromScript("-", "/home/u/proj")
	assert.False(t, ok)
	assert.True(t, r.HasPackageJSON("/home/u/proj"))
	assert.False(t, r.HasPackageJSON("/home/u/proj/src"))
}

func TestProjectResolverDepthLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/a/b/c/d", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/a/package.json", []byte(`{"name":"a"}`), 0o644))

	_, ok := NewProjectResolver(fs, nil, "", 1).ForDir("/a/b/c/d")
	assert.False(t, ok)

	name, ok := NewProjectResolver(fs, nil, "", 3).ForDir("/a/b/c/d")
	assert.True(t, ok)
	assert.Equal(t, "a", name)
}

func TestProjectResolverCachesMisses(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv/app", 0o755))
	r := NewProjectResolver(fs, nil, "", 0)

	_, ok := r.ForDir("/srv/app")
	assert.False(t, ok)

	require.NoError(t, afero.WriteFile(fs, "/srv/app/package.json", []byte(`{"name":"late"}`), 0o644))
	_, ok = r.ForDir("/srv/app")
	assert.False(t, ok)
}
