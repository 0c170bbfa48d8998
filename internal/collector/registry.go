package collector

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry holds the registered collectors and runs them together.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register adds c when it is available. Unavailable collectors are logged
// and skipped.
func (r *Registry) Register(c Collector) {
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
		return
	}
	r.collectors = append(r.collectors, c)
	r.logger.Debug("Registered collector", zap.String("name", c.Name()))
}

// CollectAll runs every collector concurrently and returns results keyed by
// collector name. A failing collector is logged and left out; it does not
// cancel the others.
func (r *Registry) CollectAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{}, len(r.collectors))
	var mu sync.Mutex
	var g errgroup.Group

	for _, c := range r.collectors {
		c := c
		g.Go(func() error {
			data, err := c.Collect(ctx)
			if err != nil {
				r.logger.Error("Collection failed",
					zap.String("collector", c.Name()),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			results[c.Name()] = data
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Collectors returns a copy of the registered collectors.
func (r *Registry) Collectors() []Collector {
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}
