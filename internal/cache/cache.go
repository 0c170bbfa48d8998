// Package cache provides the memoization layers shared by the collectors.
// Each cache is populated lazily on miss through an injected loader and can be
// flushed at any time; none of them is a source of truth.
package cache

import (
	"os/user"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Default TTLs for the expiring caches.
const (
	DefaultInodeTTL     = 2 * time.Second
	DefaultPSSTTL       = 10 * time.Second
	DefaultContainerTTL = 5 * time.Second
	DefaultUserTTL      = 30 * time.Second
)

// TTLs configures the expiring caches. Zero values select the defaults.
type TTLs struct {
	Inode     time.Duration
	PSS       time.Duration
	Container time.Duration
	User      time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Inode <= 0 {
		t.Inode = DefaultInodeTTL
	}
	if t.PSS <= 0 {
		t.PSS = DefaultPSSTTL
	}
	if t.Container <= 0 {
		t.Container = DefaultContainerTTL
	}
	if t.User <= 0 {
		t.User = DefaultUserTTL
	}
	return t
}

// Loaders are the expensive lookups the caches memoize.
type Loaders struct {
	Inodes         func() (map[uint64]int32, error)
	PSS            func(pid int32) (uint64, error)
	ContainerNames func() (map[string]string, error)
	UserName       func(uid uint32) (string, error)
}

// Caches bundles every cache a collector pipeline needs.
type Caches struct {
	Inodes       *InodeCache
	PSS          *PSSCache
	Containers   *ContainerNameCache
	Users        *UserCache
	Projects     *ProjectCache
	NodeVersions *VersionCache
}

// New builds a cache set. Nil loaders disable the corresponding cache: lookups
// report a miss.
func New(ttls TTLs, loaders Loaders) *Caches {
	ttls = ttls.withDefaults()
	if loaders.UserName == nil {
		loaders.UserName = LookupUserName
	}
	return &Caches{
		Inodes:       NewInodeCache(ttls.Inode, loaders.Inodes),
		PSS:          NewPSSCache(ttls.PSS, loaders.PSS),
		Containers:   NewContainerNameCache(ttls.Container, loaders.ContainerNames),
		Users:        NewUserCache(ttls.User, loaders.UserName),
		Projects:     NewProjectCache(),
		NodeVersions: NewVersionCache(),
	}
}

// Flush empties every cache.
func (c *Caches) Flush() {
	c.Inodes.store.c.Flush()
	c.PSS.store.c.Flush()
	c.Containers.store.c.Flush()
	c.Users.store.c.Flush()
	c.Projects.store.c.Flush()
	c.NodeVersions.store.c.Flush()
}

// LookupUserName resolves a uid through the system user database.
func LookupUserName(uid uint32) (string, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// typed is a go-cache store holding values of a single type.
type typed[V any] struct {
	c   *gocache.Cache
	ttl time.Duration
}

func newTyped[V any](ttl time.Duration) typed[V] {
	if ttl == gocache.NoExpiration {
		return typed[V]{c: gocache.New(gocache.NoExpiration, 0), ttl: ttl}
	}
	return typed[V]{c: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (t typed[V]) get(key string) (V, bool) {
	if v, ok := t.c.Get(key); ok {
		if typedV, ok := v.(V); ok {
			return typedV, true
		}
	}
	var zero V
	return zero, false
}

func (t typed[V]) set(key string, v V) {
	t.c.Set(key, v, t.ttl)
}
