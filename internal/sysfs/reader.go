// Package sysfs reads the Linux process, socket and cgroup pseudo-filesystems.
// Every read goes through an afero.Fs so tests can supply fixture trees.
// Unreadable entries are reported to the caller, which skips them.
package sysfs

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ErrLinksUnsupported is returned when the underlying filesystem cannot
// resolve symbolic links (for example an in-memory fs).
var ErrLinksUnsupported = errors.New("filesystem does not support readlink")

// Reader resolves paths below a proc root and a cgroup root.
type Reader struct {
	fs         afero.Fs
	procRoot   string
	cgroupRoot string
}

// Option customises a Reader.
type Option func(*Reader)

// WithProcRoot overrides the default "/proc" mount point.
func WithProcRoot(root string) Option {
	return func(r *Reader) { r.procRoot = root }
}

// WithCgroupRoot overrides the default "/sys/fs/cgroup" mount point.
func WithCgroupRoot(root string) Option {
	return func(r *Reader) { r.cgroupRoot = root }
}

// New creates a Reader over fs. A nil fs means the host filesystem.
func New(fs afero.Fs, opts ...Option) *Reader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	r := &Reader{
		fs:         fs,
		procRoot:   "/proc",
		cgroupRoot: "/sys/fs/cgroup",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fs exposes the underlying filesystem for callers that walk regular
// directories (package.json lookup) through the same abstraction.
func (r *Reader) Fs() afero.Fs { return r.fs }

// ProcPath joins elements below the proc root.
func (r *Reader) ProcPath(elem ...string) string {
	return path.Join(append([]string{r.procRoot}, elem...)...)
}

func (r *Reader) pidPath(pid int32, elem ...string) string {
	return r.ProcPath(append([]string{strconv.Itoa(int(pid))}, elem...)...)
}

// PIDs lists the numeric entries of the proc root in ascending order.
func (r *Reader) PIDs() ([]int32, error) {
	entries, err := afero.ReadDir(r.fs, r.procRoot)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.procRoot, err)
	}
	pids := make([]int32, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, int32(pid))
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}

// Readlink resolves a symbolic link if the filesystem supports it.
func (r *Reader) Readlink(name string) (string, error) {
	lr, ok := r.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("readlink %s: %w", name, ErrLinksUnsupported)
	}
	return lr.ReadlinkIfPossible(name)
}

// Environ returns the KEY=VALUE entries of a process environment block.
func (r *Reader) Environ(pid int32) ([]string, error) {
	data, err := afero.ReadFile(r.fs, r.pidPath(pid, "environ"))
	if err != nil {
		return nil, fmt.Errorf("reading environ of %d: %w", pid, err)
	}
	var out []string
	for _, entry := range strings.Split(string(data), "\x00") {
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Cwd returns the working directory link target of a process.
func (r *Reader) Cwd(pid int32) (string, error) {
	return r.Readlink(r.pidPath(pid, "cwd"))
}
