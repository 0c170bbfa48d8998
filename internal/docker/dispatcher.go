package docker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell"
	"github.com/arch-ai/spark/internal/telemetry"
)

// eventBuffer lets a typical group action complete without a reader.
const eventBuffer = 64

// Executor runs one lifecycle action.
type Executor interface {
	Do(ctx context.Context, action models.ContainerAction, id string) error
}

// Dispatcher runs lifecycle actions in the background and tracks the state
// each container is expected to reach until a snapshot confirms it.
type Dispatcher struct {
	exec    Executor
	events  chan models.ContainerOpResult
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu      sync.Mutex
	pending map[string]bool
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(exec Executor, logger *zap.Logger, metrics *telemetry.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		exec:    exec,
		events:  make(chan models.ContainerOpResult, eventBuffer),
		logger:  logger,
		metrics: metrics,
		pending: make(map[string]bool),
	}
}

// Events delivers exactly one result per dispatched container.
func (d *Dispatcher) Events() <-chan models.ContainerOpResult {
	return d.events
}

// Dispatch marks every id pending and runs action against each one
// concurrently. Outcomes are independent of each other.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.ContainerAction, ids ...string) {
	if len(ids) == 0 {
		return
	}
	expected := action.ExpectedRunning()
	d.mu.Lock()
	for _, id := range ids {
		d.pending[id] = expected
	}
	n := len(d.pending)
	d.mu.Unlock()
	d.metrics.SetPendingOps(n)

	for _, id := range ids {
		go d.execute(ctx, action, id)
	}
}

// DispatchGroup runs action against every record in the compose group key.
// It returns the ids of the containers targeted.
func (d *Dispatcher) DispatchGroup(ctx context.Context, action models.ContainerAction, records []models.ContainerRecord, key string) []string {
	ids := ContainersInGroup(records, key)
	d.Dispatch(ctx, action, ids...)
	return ids
}

func (d *Dispatcher) execute(ctx context.Context, action models.ContainerAction, id string) {
	res := models.ContainerOpResult{ContainerID: id, Action: action, Success: true}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Message = fmt.Sprintf("%s panicked: %v", action, r)
		}
		d.metrics.ObserveContainerOp(string(action), res.Success)
		d.events <- res
	}()

	if err := d.exec.Do(ctx, action, id); err != nil {
		res.Success = false
		res.Message = shell.Message(err)
		d.logger.Warn("Container action failed",
			zap.String("action", string(action)),
			zap.String("container", id),
			zap.Error(err))
	}
}

// Drain returns the results that are ready without blocking.
func (d *Dispatcher) Drain() []models.ContainerOpResult {
	var out []models.ContainerOpResult
	for {
		select {
		case r := <-d.events:
			out = append(out, r)
		default:
			return out
		}
	}
}

// HandleResult applies a finished action and returns a status message. A
// failed action is no longer pending; a successful one stays pending until
// Reconcile sees its effect.
func (d *Dispatcher) HandleResult(r models.ContainerOpResult) string {
	short := ShortID(r.ContainerID)
	if r.Success {
		return fmt.Sprintf("%s %s: done", r.Action, short)
	}
	d.mu.Lock()
	delete(d.pending, r.ContainerID)
	n := len(d.pending)
	d.mu.Unlock()
	d.metrics.SetPendingOps(n)
	if r.Message == "" {
		return fmt.Sprintf("%s %s failed", r.Action, short)
	}
	return fmt.Sprintf("%s %s failed: %s", r.Action, short, r.Message)
}

// Reconcile clears pending entries whose container is observed in the
// expected state. It returns how many entries were cleared.
func (d *Dispatcher) Reconcile(snapshot []models.ContainerRecord) int {
	d.mu.Lock()
	cleared := 0
	for i := range snapshot {
		rec := &snapshot[i]
		if expected, ok := d.pending[rec.ID]; ok && rec.Running == expected {
			delete(d.pending, rec.ID)
			cleared++
		}
	}
	n := len(d.pending)
	d.mu.Unlock()
	if cleared > 0 {
		d.metrics.SetPendingOps(n)
	}
	return cleared
}

// Pending reports the expected running state of a container with an
// unconfirmed action.
func (d *Dispatcher) Pending(id string) (expectedRunning, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	expectedRunning, ok = d.pending[id]
	return expectedRunning, ok
}

// Unconfirmed returns a line for each of ids whose action is still pending,
// naming the state it is waiting for.
func (d *Dispatcher) Unconfirmed(ids []string) []string {
	var out []string
	for _, id := range ids {
		expected, ok := d.Pending(id)
		if !ok {
			continue
		}
		state := "stopped"
		if expected {
			state = "running"
		}
		out = append(out, fmt.Sprintf("%s: still waiting to be %s", ShortID(id), state))
	}
	return out
}

// PendingCount returns the number of unconfirmed actions.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// ShortID returns the 12-character form of a container id.
func ShortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
