package docker

import (
	"math"
	"path"
	"strconv"
	"strings"

	units "github.com/docker/go-units"

	"github.com/arch-ai/spark/internal/models"
)

const (
	dash = "-"

	labelWorkingDir = "com.docker.compose.project.working_dir"
	labelProject    = "com.docker.compose.project"

	// maxPortRange bounds how many host ports one published range may expand to.
	maxPortRange = 1024
)

// NeverActive is the recency of containers that never ran.
const NeverActive = math.MaxUint64 / 2

// ParseCPUPercent parses a stats CPU column such as "12.5%" or "0,37%".
func ParseCPUPercent(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSuffix(strings.TrimSpace(s), "%"), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// ParseMemUsage parses the used half of a stats memory column such as
// "12.5MiB / 1.944GiB".
func ParseMemUsage(s string) (uint64, bool) {
	used, _, _ := strings.Cut(s, "/")
	return ParseSize(used)
}

// ParseSize parses a size with a binary (KiB..TiB) or decimal (B, kB..TB)
// suffix. Comma decimal separators are accepted.
func ParseSize(s string) (uint64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	var (
		n   int64
		err error
	)
	if strings.ContainsAny(s, "iI") {
		n, err = units.RAMInBytes(s)
	} else {
		n, err = units.FromHumanSize(s)
	}
	if err != nil || n < 0 {
		return 0, false
	}
	return uint64(n), true
}

// ParsePortStrings splits a listing's port column into the published host
// ports and the container-side ports. Unpublished ports count as internal
// when anything is published, otherwise they are shown as public. Missing
// values are "-".
func ParsePortStrings(raw string) (public, internal string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dash, dash
	}

	var pub, inner, unbound []string
	for _, part := range strings.Split(raw, ",") {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}
		if left, right, ok := strings.Cut(entry, "->"); ok {
			if host := hostPort(left); host != "" {
				pub = append(pub, host)
			}
			cport, _, _ := strings.Cut(strings.TrimSpace(right), "/")
			if cport = strings.TrimSpace(cport); cport != "" {
				inner = append(inner, cport)
			}
			continue
		}
		if port := unboundPort(entry); port != "" {
			unbound = append(unbound, port)
		}
	}

	switch {
	case len(pub) > 0:
		inner = append(inner, unbound...)
		internal = dash
		if len(inner) > 0 {
			internal = strings.Join(inner, ",")
		}
		return strings.Join(pub, ","), internal
	case len(unbound) > 0:
		return strings.Join(unbound, ","), dash
	default:
		return dash, dash
	}
}

// hostPort returns the part after the last ':' of "0.0.0.0:8080" or "[::]:8080".
func hostPort(left string) string {
	left = strings.TrimSpace(left)
	if i := strings.LastIndex(left, ":"); i >= 0 {
		left = left[i+1:]
	}
	return strings.TrimSpace(left)
}

// unboundPort renders "80/tcp" as "80" and "53/udp" as "53/udp".
func unboundPort(entry string) string {
	port, proto, ok := strings.Cut(entry, "/")
	if !ok {
		return entry
	}
	port, proto = strings.TrimSpace(port), strings.TrimSpace(proto)
	if port == "" {
		return ""
	}
	if proto == "" || strings.EqualFold(proto, "tcp") {
		return port
	}
	return port + "/" + proto
}

// ComposeGroupFromLabels reads the compose project of a container from its
// comma-separated label list. The working directory wins over the project
// name. ok is false for containers outside compose.
func ComposeGroupFromLabels(labels string) (group models.ComposeGroup, ok bool) {
	var project, workingDir string
	for _, part := range strings.Split(labels, ",") {
		key, value, _ := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		switch key {
		case labelWorkingDir:
			workingDir = value
		case labelProject:
			project = value
		}
	}

	if workingDir != "" {
		name := path.Base(workingDir)
		if name == "/" || name == "." {
			name = workingDir
		}
		return models.ComposeGroup{Name: name, Path: workingDir}, true
	}
	if project != "" {
		return models.ComposeGroup{Name: project}, true
	}
	return models.ComposeGroup{}, false
}

// ParseActivity turns a status such as "Up 2 hours" or "Exited (0) 3 days ago"
// into seconds since the last state change. Lower is more recent; containers
// that were only created get NeverActive.
func ParseActivity(status string) uint64 {
	s := strings.ToLower(strings.TrimSpace(status))
	if strings.HasPrefix(s, "created") {
		return NeverActive
	}
	switch {
	case strings.HasPrefix(s, "up"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "up"))
	default:
		if i := strings.IndexByte(s, ')'); i >= 0 {
			s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s[i+1:]), "ago"))
		}
	}
	return parseDuration(s)
}

func unitSeconds(unit string) (uint64, bool) {
	switch {
	case strings.HasPrefix(unit, "second"):
		return 1, true
	case strings.HasPrefix(unit, "minute"):
		return 60, true
	case strings.HasPrefix(unit, "hour"):
		return 3600, true
	case strings.HasPrefix(unit, "day"):
		return 86400, true
	case strings.HasPrefix(unit, "week"):
		return 7 * 86400, true
	case strings.HasPrefix(unit, "month"):
		return 30 * 86400, true
	case strings.HasPrefix(unit, "year"):
		return 365 * 86400, true
	}
	return 0, false
}

// parseDuration reads "2 hours", "about an hour" or "45 seconds".
func parseDuration(s string) uint64 {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "about"))

	if strings.HasPrefix(s, "a ") || strings.HasPrefix(s, "an ") {
		unit := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "a "), "an "))
		if secs, ok := unitSeconds(unit); ok {
			return secs
		}
		return NeverActive
	}

	fields := strings.Fields(s)
	n := uint64(1)
	if len(fields) > 0 {
		if v, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			n = v
		}
	}
	mult := uint64(1)
	if len(fields) > 1 {
		if secs, ok := unitSeconds(fields[1]); ok {
			mult = secs
		}
	}
	if n > math.MaxUint64/mult {
		return math.MaxUint64
	}
	return n * mult
}

// Binding is one host port published by a container.
type Binding struct {
	Proto         string
	HostPort      uint16
	ContainerPort uint16
}

// ParsePortBindings expands the published entries of a port column. Ranges
// map host and container ports pairwise; entries without "->" are skipped.
func ParsePortBindings(raw string) []Binding {
	var out []Binding
	for _, part := range strings.Split(raw, ",") {
		entry := strings.TrimSpace(part)
		left, right, ok := strings.Cut(entry, "->")
		if !ok {
			continue
		}
		cport, proto, hasProto := strings.Cut(strings.TrimSpace(right), "/")
		proto = strings.TrimSpace(proto)
		if !hasProto {
			proto = "tcp"
		}

		hosts := parsePortRange(hostPort(left))
		mapped := parsePortRange(strings.TrimSpace(cport))
		if len(mapped) == 0 {
			mapped = []uint16{0}
		}
		for i, host := range hosts {
			c := mapped[0]
			if i < len(mapped) {
				c = mapped[i]
			}
			out = append(out, Binding{Proto: proto, HostPort: host, ContainerPort: c})
		}
	}
	return out
}

// parsePortRange parses "8080" or "8000-8010". Inverted or oversized ranges
// yield nothing.
func parsePortRange(s string) []uint16 {
	if s == "" {
		return nil
	}
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		start, err1 := strconv.ParseUint(strings.TrimSpace(lo), 10, 16)
		end, err2 := strconv.ParseUint(strings.TrimSpace(hi), 10, 16)
		if err1 != nil || err2 != nil || end < start || end-start+1 > maxPortRange {
			return nil
		}
		ports := make([]uint16, 0, end-start+1)
		for p := start; p <= end; p++ {
			ports = append(ports, uint16(p))
		}
		return ports
	}
	p, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return nil
	}
	return []uint16{uint16(p)}
}
