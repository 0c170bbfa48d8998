// PM2 client: liveness probe and process list via the pm2 CLI.
// jlist output is scanned by key pattern rather than decoded: PM2 embeds the
// full process environment in each entry and only a handful of fields are read.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell"
)

var (
	// ErrPM2NotInstalled is returned when the pm2 binary cannot be run.
	ErrPM2NotInstalled = errors.New("PM2 is not installed")
	// ErrPM2DaemonNotRunning is returned when the CLI exists but its daemon is down.
	ErrPM2DaemonNotRunning = errors.New("PM2 daemon is not running")
	// ErrPM2Parse is returned for jlist output that is not a JSON array.
	ErrPM2Parse = errors.New("failed to parse PM2 output")
)

// PM2CommandError is any other pm2 failure.
type PM2CommandError struct {
	Stderr string
	Err    error
}

func (e *PM2CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return "PM2 command failed: " + msg
}

func (e *PM2CommandError) Unwrap() error { return e.Err }

// PM2Client talks to the pm2 CLI through a shell.Runner.
type PM2Client struct {
	runner shell.Runner
	binary string
	now    func() time.Time
	logger *zap.Logger
}

// NewPM2Client creates a client for binary ("pm2" when empty).
func NewPM2Client(runner shell.Runner, binary string, logger *zap.Logger) *PM2Client {
	if binary == "" {
		binary = "pm2"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PM2Client{runner: runner, binary: binary, now: time.Now, logger: logger}
}

// IsPM2Running reports whether `pm2 ping` succeeds.
func (c *PM2Client) IsPM2Running(ctx context.Context) bool {
	_, err := c.runner.Run(ctx, c.binary, "ping")
	if err != nil {
		c.logger.Debug("pm2 ping failed", zap.Error(err))
	}
	return err == nil
}

// ListPM2 returns the processes reported by `pm2 jlist`.
func (c *PM2Client) ListPM2(ctx context.Context) ([]models.PM2Info, error) {
	res, err := c.runner.Run(ctx, c.binary, "jlist")
	if err != nil {
		return nil, classifyPM2Error(err, string(res.Stderr))
	}
	return ParsePM2List(res.Stdout, c.now().UnixMilli())
}

func classifyPM2Error(err error, stderr string) error {
	if errors.Is(err, shell.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrPM2NotInstalled, err)
	}
	if stderr == "" {
		stderr = shell.Stderr(err)
	}
	switch {
	case strings.Contains(stderr, "not found"):
		return ErrPM2NotInstalled
	case strings.Contains(stderr, "PM2 is not running"), strings.Contains(stderr, "spawn pm2"):
		return ErrPM2DaemonNotRunning
	default:
		return &PM2CommandError{Stderr: stderr, Err: err}
	}
}

// ParsePM2List parses jlist output. nowMS is the current time in epoch
// milliseconds, used to turn pm_uptime into an elapsed duration. Entries
// without a pm_id are skipped.
func ParsePM2List(data []byte, nowMS int64) ([]models.PM2Info, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, fmt.Errorf("%w: invalid JSON array", ErrPM2Parse)
	}
	inner := string(trimmed[1 : len(trimmed)-1])

	var out []models.PM2Info
	for _, obj := range splitJSONObjects(inner) {
		if info, ok := parsePM2Object(obj, nowMS); ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// splitJSONObjects splits the body of a JSON array on top-level commas,
// tracking brace depth outside string literals.
func splitJSONObjects(s string) []string {
	var (
		out      []string
		start    int
		depth    int
		inString bool
		escaped  bool
	)
	flush := func(end int) {
		if part := strings.TrimSpace(s[start:end]); part != "" {
			out = append(out, part)
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}

func parsePM2Object(obj string, nowMS int64) (models.PM2Info, bool) {
	pmID, ok := extractUint(obj, "pm_id", 32)
	if !ok {
		return models.PM2Info{}, false
	}
	info := models.PM2Info{PMID: uint32(pmID), Name: "unknown", Status: "unknown", Mode: "fork"}

	if name, ok := extractString(obj, "name"); ok {
		info.Name = name
	}
	if pid, ok := extractUint(obj, "pid", 32); ok {
		info.PID = uint32(pid)
	}

	env, hasEnv := nestedObject(obj, "pm2_env")
	if status, ok := extractString(env, "status"); hasEnv && ok {
		info.Status = status
	} else if status, ok := extractString(obj, "status"); ok {
		info.Status = status
	}
	if hasEnv {
		if mode, ok := extractString(env, "exec_mode"); ok && strings.Contains(mode, "cluster") {
			info.Mode = "cluster"
		}
		if restarts, ok := extractUint(env, "restart_time", 32); ok {
			info.Restarts = uint32(restarts)
		}
		if started, ok := extractUint(env, "pm_uptime", 64); ok && nowMS > 0 && uint64(nowMS) > started {
			info.UptimeMS = uint64(nowMS) - started
		}
		if script, ok := extractString(env, "pm_exec_path"); ok {
			info.Script = script
		}
	}

	if monit, ok := nestedObject(obj, "monit"); ok {
		if mem, ok := extractUint(monit, "memory", 64); ok {
			info.MemoryBytes = mem
		}
		if cpu, ok := extractFloat(monit, "cpu"); ok {
			info.CPU = &cpu
		}
	}
	return info, true
}

// extractString returns the raw text of the first "key":"..." string. An
// unterminated string yields "".
func extractString(obj, key string) (string, bool) {
	pattern := `"` + key + `":"`
	idx := strings.Index(obj, pattern)
	if idx < 0 {
		return "", false
	}
	rest := obj[idx+len(pattern):]
	escaped := false
	for i := 0; i < len(rest); i++ {
		switch {
		case escaped:
			escaped = false
		case rest[i] == '\\':
			escaped = true
		case rest[i] == '"':
			return rest[:i], true
		}
	}
	return "", true
}

// numberAfter returns the leading run of characters accepted by allow that
// follows the first "key": pattern.
func numberAfter(obj, key string, allow func(byte) bool) (string, bool) {
	pattern := `"` + key + `":`
	idx := strings.Index(obj, pattern)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(obj[idx+len(pattern):], " \t\r\n")
	end := 0
	for end < len(rest) && allow(rest[end]) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

func extractUint(obj, key string, bits int) (uint64, bool) {
	digits, ok := numberAfter(obj, key, isDigit)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 10, bits)
	return v, err == nil
}

func extractFloat(obj, key string) (float64, bool) {
	num, ok := numberAfter(obj, key, func(c byte) bool { return isDigit(c) || c == '.' || c == '-' })
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	return v, err == nil
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// nestedObject returns the text of the object value of parent, from its key
// to the matching closing brace.
func nestedObject(obj, parent string) (string, bool) {
	idx := strings.Index(obj, `"`+parent+`":{`)
	if idx < 0 {
		idx = strings.Index(obj, `"`+parent+`" : {`)
	}
	if idx < 0 {
		return "", false
	}
	content := obj[idx:]
	depth := 0
	started := false
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
			started = true
		case '}':
			depth--
			if started && depth == 0 {
				return content[:i+1], true
			}
		}
	}
	return content, true
}
