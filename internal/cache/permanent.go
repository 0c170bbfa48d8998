package cache

import gocache "github.com/patrickmn/go-cache"

// lookupResult records a resolution attempt, including a negative one.
type lookupResult struct {
	value string
	found bool
}

// ProjectCache maps an absolute directory to the project name found for it.
// Entries live for the process lifetime; negative results are cached too.
type ProjectCache struct {
	store typed[lookupResult]
}

// NewProjectCache creates an empty project cache.
func NewProjectCache() *ProjectCache {
	return &ProjectCache{store: newTyped[lookupResult](gocache.NoExpiration)}
}

// Lookup returns the cached project name of dir, calling resolve on a miss.
func (c *ProjectCache) Lookup(dir string, resolve func(dir string) (string, bool)) (string, bool) {
	if r, ok := c.store.get(dir); ok {
		return r.value, r.found
	}
	name, found := resolve(dir)
	c.store.set(dir, lookupResult{value: name, found: found})
	return name, found
}

// VersionCache maps a runtime binary path to its reported version.
type VersionCache struct {
	store typed[lookupResult]
}

// NewVersionCache creates an empty version cache.
func NewVersionCache() *VersionCache {
	return &VersionCache{store: newTyped[lookupResult](gocache.NoExpiration)}
}

// Lookup returns the cached version of bin, calling resolve on a miss.
func (c *VersionCache) Lookup(bin string, resolve func(bin string) (string, bool)) (string, bool) {
	if r, ok := c.store.get(bin); ok {
		return r.value, r.found
	}
	v, found := resolve(bin)
	c.store.set(bin, lookupResult{value: v, found: found})
	return v, found
}
