package sysfs

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// minContainerIDLen is the shortest hex run accepted as a container id.
const minContainerIDLen = 12

// CgroupPath returns the unified (v2) cgroup path of a process, the part
// after "0::" in /proc/<pid>/cgroup.
func (r *Reader) CgroupPath(pid int32) (string, error) {
	data, err := afero.ReadFile(r.fs, r.pidPath(pid, "cgroup"))
	if err != nil {
		return "", fmt.Errorf("reading cgroup of %d: %w", pid, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if p, ok := strings.CutPrefix(scanner.Text(), "0::"); ok {
			return strings.TrimSpace(p), nil
		}
	}
	return "", fmt.Errorf("no unified cgroup entry for %d", pid)
}

// CgroupMemoryCurrent reads memory.current of the cgroup at cgPath.
func (r *Reader) CgroupMemoryCurrent(cgPath string) (uint64, error) {
	file := path.Join(r.cgroupRoot, cgPath, "memory.current")
	data, err := afero.ReadFile(r.fs, file)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", file, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", file, err)
	}
	return v, nil
}

// SmapsRollupPSS returns the proportional set size of a process in bytes.
func (r *Reader) SmapsRollupPSS(pid int32) (uint64, error) {
	data, err := afero.ReadFile(r.fs, r.pidPath(pid, "smaps_rollup"))
	if err != nil {
		return 0, fmt.Errorf("reading smaps_rollup of %d: %w", pid, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(scanner.Text(), "Pss:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			break
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing Pss of %d: %w", pid, err)
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("no Pss line for %d", pid)
}

// ContainerID returns the container id embedded in a process's cgroup file,
// or "" when the process is not containerised.
func (r *Reader) ContainerID(pid int32) string {
	data, err := afero.ReadFile(r.fs, r.pidPath(pid, "cgroup"))
	if err != nil {
		return ""
	}
	return ExtractContainerID(string(data))
}

// ExtractContainerID returns the longest run of at least 12 hex digits in a
// cgroup file body.
func ExtractContainerID(cgroup string) string {
	best := ""
	for _, line := range strings.Split(cgroup, "\n") {
		start := -1
		for i := 0; i <= len(line); i++ {
			if i < len(line) && isHex(line[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if run := line[start:i]; len(run) >= minContainerIDLen && len(run) > len(best) {
					best = run
				}
				start = -1
			}
		}
	}
	return best
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
