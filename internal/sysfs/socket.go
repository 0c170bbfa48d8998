package sysfs

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// tcpListen is the kernel state code for a listening TCP socket.
const tcpListen = "0A"

// SocketEntry is one row of a /proc/net socket table.
type SocketEntry struct {
	Port  uint16
	Inode uint64
}

// SocketTable names one of the kernel socket tables and how to filter it.
type SocketTable struct {
	Proto      string
	File       string
	ListenOnly bool
}

// SocketTables are the tables scanned for listening ports, in scan order.
var SocketTables = []SocketTable{
	{Proto: "tcp", File: "tcp", ListenOnly: true},
	{Proto: "tcp6", File: "tcp6", ListenOnly: true},
	{Proto: "udp", File: "udp"},
	{Proto: "udp6", File: "udp6"},
}

// ReadSocketTable parses /proc/net/<file>. Malformed rows, port 0 and
// inode 0 are skipped. With listenOnly, only rows in the LISTEN state are kept.
func (r *Reader) ReadSocketTable(file string, listenOnly bool) ([]SocketEntry, error) {
	f, err := r.fs.Open(r.ProcPath("net", file))
	if err != nil {
		return nil, fmt.Errorf("opening socket table %s: %w", file, err)
	}
	defer f.Close()

	var entries []SocketEntry
	scanner := bufio.NewScanner(f)
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if listenOnly && fields[3] != tcpListen {
			continue
		}
		port, ok := parseHexPort(fields[1])
		if !ok || port == 0 {
			continue
		}
		inode, err := strconv.ParseUint(fields[9], 10, 64)
		if err != nil || inode == 0 {
			continue
		}
		entries = append(entries, SocketEntry{Port: port, Inode: inode})
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("scanning socket table %s: %w", file, err)
	}
	return entries, nil
}

// parseHexPort extracts the port from a "HEXADDR:HEXPORT" local address.
func parseHexPort(local string) (uint16, bool) {
	idx := strings.LastIndexByte(local, ':')
	if idx < 0 {
		return 0, false
	}
	port, err := strconv.ParseUint(local[idx+1:], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(port), true
}

// BuildInodeMap walks every /proc/<pid>/fd directory and maps socket inodes
// to the owning pid. Pids are visited in ascending order and the first owner
// of an inode wins. Processes whose fds cannot be listed are skipped.
func (r *Reader) BuildInodeMap() (map[uint64]int32, error) {
	pids, err := r.PIDs()
	if err != nil {
		return nil, err
	}
	inodes := make(map[uint64]int32)
	for _, pid := range pids {
		fdDir := r.pidPath(pid, "fd")
		fds, err := r.fs.Open(fdDir)
		if err != nil {
			continue
		}
		names, err := fds.Readdirnames(-1)
		fds.Close()
		if err != nil {
			continue
		}
		sort.Strings(names)
		for _, name := range names {
			target, err := r.Readlink(fdDir + "/" + name)
			if err != nil {
				continue
			}
			inode, ok := parseSocketLink(target)
			if !ok {
				continue
			}
			if _, seen := inodes[inode]; !seen {
				inodes[inode] = pid
			}
		}
	}
	return inodes, nil
}

// parseSocketLink extracts N from an fd link target of the form "socket:[N]".
func parseSocketLink(target string) (uint64, bool) {
	rest, ok := strings.CutPrefix(target, "socket:[")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	inode, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}
