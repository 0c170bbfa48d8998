// Package scheduler drives the dashboard refresh cycle. A single goroutine
// refreshes the active view on a ticker, pulls the docker worker snapshot,
// reconciles pending container operations and reports their results. Nothing
// here runs concurrently with the view; the docker worker and lifecycle
// commands are the only background work.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/config"
	"github.com/arch-ai/spark/internal/models"
)

// Snapshotter publishes the latest container listing.
type Snapshotter interface {
	Snapshot() []models.ContainerRecord
}

// OpTracker tracks background lifecycle operations.
type OpTracker interface {
	Events() <-chan models.ContainerOpResult
	HandleResult(r models.ContainerOpResult) string
	Reconcile(snapshot []models.ContainerRecord) int
}

// Handlers are the callbacks the loop invokes. Any of them may be nil.
type Handlers struct {
	// Refresh collects the active view.
	Refresh func(ctx context.Context) error
	// Containers receives each pulled docker snapshot after reconciliation.
	Containers func(snapshot []models.ContainerRecord)
	// Status receives each finished lifecycle operation with its message.
	Status func(r models.ContainerOpResult, msg string)
}

// Loop is the cooperative refresh loop.
type Loop struct {
	cfg      config.RefreshConfig
	docker   Snapshotter
	ops      OpTracker
	handlers Handlers
	logger   *zap.Logger
}

// New creates a loop. docker and ops may be nil when the container view is
// disabled.
func New(cfg config.RefreshConfig, docker Snapshotter, ops OpTracker, handlers Handlers, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:      cfg,
		docker:   docker,
		ops:      ops,
		handlers: handlers,
		logger:   logger,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Interval.Duration <= 0 {
		return fmt.Errorf("refresh interval must be positive (got %s)", l.cfg.Interval.Duration)
	}
	refreshTicker := time.NewTicker(l.cfg.Interval.Duration)
	defer refreshTicker.Stop()

	var pull <-chan time.Time
	if l.docker != nil && l.cfg.DockerPull.Duration > 0 {
		pullTicker := time.NewTicker(l.cfg.DockerPull.Duration)
		defer pullTicker.Stop()
		pull = pullTicker.C
	}

	var events <-chan models.ContainerOpResult
	if l.ops != nil {
		events = l.ops.Events()
	}

	l.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refreshTicker.C:
			l.refresh(ctx)
		case <-pull:
			l.pull()
		case r := <-events:
			msg := l.ops.HandleResult(r)
			l.logger.Debug("Container operation finished",
				zap.String("container", r.ContainerID),
				zap.String("action", string(r.Action)),
				zap.Bool("success", r.Success))
			if l.handlers.Status != nil {
				l.handlers.Status(r, msg)
			}
		}
	}
}

func (l *Loop) refresh(ctx context.Context) {
	if l.handlers.Refresh == nil {
		return
	}
	if err := l.handlers.Refresh(ctx); err != nil {
		l.logger.Warn("Refresh failed", zap.Error(err))
	}
}

func (l *Loop) pull() {
	snapshot := l.docker.Snapshot()
	if l.ops != nil {
		if n := l.ops.Reconcile(snapshot); n > 0 {
			l.logger.Debug("Reconciled container operations", zap.Int("count", n))
		}
	}
	if l.handlers.Containers != nil {
		l.handlers.Containers(snapshot)
	}
}
