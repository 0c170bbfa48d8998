package docker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/telemetry"
)

// DefaultPollInterval is used when StartWorker is given a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// ContainerLister produces one container listing per call.
type ContainerLister interface {
	ListContainers(ctx context.Context) ([]models.ContainerRecord, error)
}

// Worker polls the engine in the background and publishes each listing as an
// immutable snapshot. Readers never block the poller.
type Worker struct {
	lister   ContainerLister
	interval time.Duration
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	snapshot atomic.Pointer[[]models.ContainerRecord]
	lastErr  atomic.Error
	polls    atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// StartWorker starts polling immediately and then every interval until ctx
// is cancelled or Stop is called. A command already running when that
// happens is allowed to finish.
func StartWorker(ctx context.Context, lister ContainerLister, interval time.Duration, logger *zap.Logger, metrics *telemetry.Metrics) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		lister:   lister,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	empty := []models.ContainerRecord{}
	w.snapshot.Store(&empty)
	go w.run(ctx)
	return w
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("Docker worker started", zap.Duration("interval", w.interval))
	for {
		w.poll(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
			w.logger.Debug("Docker worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// poll runs one listing. Failures and panics keep the previous snapshot.
func (w *Worker) poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("docker poll panicked: %v", r)
			w.lastErr.Store(err)
			w.metrics.ObserveDockerPoll(0, err)
			w.logger.Error("Docker poll panicked", zap.Any("panic", r))
		}
	}()

	records, err := w.lister.ListContainers(ctx)
	w.polls.Inc()
	w.metrics.ObserveDockerPoll(len(records), err)
	if err != nil {
		w.lastErr.Store(err)
		w.logger.Warn("Docker poll failed, keeping previous snapshot", zap.Error(err))
		return
	}
	w.lastErr.Store(nil)
	w.snapshot.Store(&records)
}

// Snapshot returns a copy of the latest published listing.
func (w *Worker) Snapshot() []models.ContainerRecord {
	cur := *w.snapshot.Load()
	out := make([]models.ContainerRecord, len(cur))
	copy(out, cur)
	return out
}

// LastError returns the error of the latest poll, or nil if it succeeded.
func (w *Worker) LastError() error {
	return w.lastErr.Load()
}

// Polls returns how many polls have completed.
func (w *Worker) Polls() uint64 {
	return w.polls.Load()
}

// Stop ends the loop and waits for the current poll to finish.
func (w *Worker) Stop() {
	w.cancel()
	<-w.done
}
