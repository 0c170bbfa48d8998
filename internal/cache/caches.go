package cache

import (
	"strconv"
	"time"
)

const (
	inodeKey     = "inodes"
	containerKey = "containers"
	shortIDLen   = 12
	unknownUser  = "-"
)

// InodeCache holds the whole socket inode -> pid map under a single entry.
// A stale map is rebuilt and replaced as a unit.
type InodeCache struct {
	store typed[map[uint64]int32]
	load  func() (map[uint64]int32, error)
}

// NewInodeCache creates an inode cache with the given TTL.
func NewInodeCache(ttl time.Duration, load func() (map[uint64]int32, error)) *InodeCache {
	return &InodeCache{store: newTyped[map[uint64]int32](ttl), load: load}
}

// Map returns the cached map, rebuilding it when expired. The returned map
// must not be modified.
func (c *InodeCache) Map() (map[uint64]int32, error) {
	if m, ok := c.store.get(inodeKey); ok {
		return m, nil
	}
	if c.load == nil {
		return map[uint64]int32{}, nil
	}
	m, err := c.load()
	if err != nil {
		return nil, err
	}
	c.store.set(inodeKey, m)
	return m, nil
}

// PSSCache memoizes per-process proportional set size readings.
type PSSCache struct {
	store typed[uint64]
	load  func(pid int32) (uint64, error)
}

// NewPSSCache creates a PSS cache with the given TTL.
func NewPSSCache(ttl time.Duration, load func(pid int32) (uint64, error)) *PSSCache {
	return &PSSCache{store: newTyped[uint64](ttl), load: load}
}

// Get returns the PSS of pid in bytes, or false when it cannot be read.
// Failed reads are not cached.
func (c *PSSCache) Get(pid int32) (uint64, bool) {
	key := strconv.Itoa(int(pid))
	if v, ok := c.store.get(key); ok {
		return v, true
	}
	if c.load == nil {
		return 0, false
	}
	v, err := c.load(pid)
	if err != nil {
		return 0, false
	}
	c.store.set(key, v)
	return v, true
}

// ContainerNameCache maps container ids, full and 12-char short, to names.
type ContainerNameCache struct {
	store typed[map[string]string]
	load  func() (map[string]string, error)
}

// NewContainerNameCache creates a container name cache with the given TTL.
func NewContainerNameCache(ttl time.Duration, load func() (map[string]string, error)) *ContainerNameCache {
	return &ContainerNameCache{store: newTyped[map[string]string](ttl), load: load}
}

// Resolve returns the container name for a full or short id. A failed load is
// cached as an empty map so an absent engine is not queried on every lookup.
func (c *ContainerNameCache) Resolve(id string) (string, bool) {
	names, ok := c.store.get(containerKey)
	if !ok {
		names = map[string]string{}
		if c.load != nil {
			if loaded, err := c.load(); err == nil && loaded != nil {
				names = loaded
			}
		}
		c.store.set(containerKey, names)
	}
	if name, ok := names[id]; ok {
		return name, true
	}
	if len(id) > shortIDLen {
		if name, ok := names[id[:shortIDLen]]; ok {
			return name, true
		}
	}
	return "", false
}

// Label returns the container display label for an id: the resolved name, or
// "ctr:<short id>" when the engine does not know it.
func (c *ContainerNameCache) Label(id string) string {
	if name, ok := c.Resolve(id); ok {
		return name
	}
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return "ctr:" + id
}

// UserCache memoizes uid -> user name lookups.
type UserCache struct {
	store  typed[string]
	lookup func(uid uint32) (string, error)
}

// NewUserCache creates a user cache with the given TTL.
func NewUserCache(ttl time.Duration, lookup func(uid uint32) (string, error)) *UserCache {
	return &UserCache{store: newTyped[string](ttl), lookup: lookup}
}

// Name returns the user name of uid, or "-" when unknown.
func (c *UserCache) Name(uid uint32) string {
	key := strconv.FormatUint(uint64(uid), 10)
	if name, ok := c.store.get(key); ok {
		return name
	}
	name := unknownUser
	if c.lookup != nil {
		if n, err := c.lookup(uid); err == nil && n != "" {
			name = n
		}
	}
	c.store.set(key, name)
	return name
}
