// Process sampler: one coherent read of every OS process per call.
// Uses gopsutil; handles are kept across calls so CPU percentages are deltas.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// kthreadd is the parent of every Linux kernel thread.
const kthreadd = 2

// RawProcess is the OS view of one process before any enrichment.
type RawProcess struct {
	PID       int32
	PPID      int32
	HasParent bool
	Name      string
	Exe       string
	Cmdline   []string
	Cwd       string
	UID       uint32
	HasUID    bool
	RSS       uint64
	CPU       float64
	// CreateTime is milliseconds since the epoch.
	CreateTime int64
	IsThread   bool
}

// ProcessSource yields a process snapshot.
type ProcessSource interface {
	Processes(ctx context.Context) ([]RawProcess, error)
}

type handle struct {
	proc       *process.Process
	createTime int64
}

// Sampler is the gopsutil-backed ProcessSource shared by the process, ports
// and node collectors. Calls are serialized.
type Sampler struct {
	mu      sync.Mutex
	handles map[int32]handle
	logger  *zap.Logger
}

// NewSampler creates a sampler.
func NewSampler(logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{handles: make(map[int32]handle), logger: logger}
}

// Processes returns every process visible to the caller. Processes that exit
// mid-scan are skipped. The first sample of a process reports 0% CPU.
func (s *Sampler) Processes(ctx context.Context) ([]RawProcess, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int32]struct{}, len(pids))
	out := make([]RawProcess, 0, len(pids))
	for _, pid := range pids {
		h, ok := s.handleFor(ctx, pid)
		if !ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, s.read(ctx, h))
	}

	for pid := range s.handles {
		if _, ok := seen[pid]; !ok {
			delete(s.handles, pid)
		}
	}
	return out, nil
}

// Prime records a CPU baseline for every process and then waits for window,
// so the next Processes call reports usage over that window instead of the
// 0% of a first sample.
func (s *Sampler) Prime(ctx context.Context, window time.Duration) error {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, pid := range pids {
		if h, ok := s.handleFor(ctx, pid); ok {
			_, _ = h.proc.PercentWithContext(ctx, 0)
		}
	}
	s.mu.Unlock()

	if window <= 0 {
		return nil
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// handleFor returns the cached handle of pid, replacing it when the pid was
// recycled by a new process.
func (s *Sampler) handleFor(ctx context.Context, pid int32) (handle, bool) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return handle{}, false
	}
	created, _ := p.CreateTimeWithContext(ctx)
	if h, ok := s.handles[pid]; ok && h.createTime == created {
		return h, true
	}
	h := handle{proc: p, createTime: created}
	s.handles[pid] = h
	return h, true
}

func (s *Sampler) read(ctx context.Context, h handle) RawProcess {
	p := h.proc
	raw := RawProcess{PID: p.Pid, CreateTime: h.createTime}

	raw.Name, _ = p.NameWithContext(ctx)
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		raw.PPID = ppid
		raw.HasParent = ppid > 0
	}
	raw.Exe, _ = p.ExeWithContext(ctx)
	raw.Cmdline, _ = p.CmdlineSliceWithContext(ctx)
	raw.Cwd, _ = p.CwdWithContext(ctx)
	if uids, err := p.UidsWithContext(ctx); err == nil && len(uids) > 0 {
		raw.UID = uint32(uids[0])
		raw.HasUID = true
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		raw.RSS = mem.RSS
	}
	if cpu, err := p.PercentWithContext(ctx, 0); err == nil {
		raw.CPU = cpu
	} else {
		s.logger.Debug("CPU sample failed", zap.Int32("pid", p.Pid), zap.Error(err))
	}
	raw.IsThread = isKernelThread(raw)
	return raw
}

// isKernelThread reports whether a process is kthreadd or one of its children.
func isKernelThread(p RawProcess) bool {
	return p.PID == kthreadd || (p.HasParent && p.PPID == kthreadd)
}
