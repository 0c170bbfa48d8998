package collector

import (
	"context"
	"sync"

	"github.com/arch-ai/spark/internal/sysfs"
)

// staticSource is a ProcessSource returning a fixed snapshot.
type staticSource struct {
	procs []RawProcess
	err   error
	calls int
}

func (s *staticSource) Processes(context.Context) ([]RawProcess, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RawProcess, len(s.procs))
	copy(out, s.procs)
	return out, nil
}

type fakeSockets map[string][]sysfs.SocketEntry

func (f fakeSockets) ReadSocketTable(file string, _ bool) ([]sysfs.SocketEntry, error) {
	return f[file], nil
}

type fakeCgroups struct {
	paths   map[int32]string
	current map[string]uint64
}

func (f fakeCgroups) CgroupPath(pid int32) (string, error) {
	return f.paths[pid], nil
}

func (f fakeCgroups) CgroupMemoryCurrent(path string) (uint64, error) {
	return f.current[path], nil
}

type fakePSS struct {
	mu    sync.Mutex
	bytes map[int32]uint64
}

func (f *fakePSS) Get(pid int32) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.bytes[pid]
	return v, ok
}
