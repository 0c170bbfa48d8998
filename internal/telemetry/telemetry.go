// Package telemetry holds the self-monitoring counters of the collection
// pipeline. Metrics live in a private registry and are only exposed on demand
// (spark metrics); no listener is opened.
package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "spark"

// Metrics is safe for concurrent use. A nil *Metrics discards every observation.
type Metrics struct {
	registry *prometheus.Registry

	collectDuration    *prometheus.HistogramVec
	collectErrors      *prometheus.CounterVec
	dockerPolls        prometheus.Counter
	dockerPollFailures prometheus.Counter
	containers         prometheus.Gauge
	containerOps       *prometheus.CounterVec
	pendingOps         prometheus.Gauge
}

// New registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		collectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collect_duration_seconds",
			Help:      "Duration of one collector run.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"collector"}),
		collectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_errors_total",
			Help:      "Collector runs that returned an error.",
		}, []string{"collector"}),
		dockerPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "docker_polls_total",
			Help:      "Background container engine polls.",
		}),
		dockerPollFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "docker_poll_failures_total",
			Help:      "Engine polls that kept the previous snapshot.",
		}),
		containers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "docker_containers",
			Help:      "Containers in the latest published snapshot.",
		}),
		containerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "container_operations_total",
			Help:      "Completed container lifecycle commands.",
		}, []string{"action", "result"}),
		pendingOps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_operations_pending",
			Help:      "Lifecycle operations not yet observed in a snapshot.",
		}),
	}
}

// ObserveCollect records one collector run that started at start.
func (m *Metrics) ObserveCollect(collector string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.collectDuration.WithLabelValues(collector).Observe(time.Since(start).Seconds())
	if err != nil {
		m.collectErrors.WithLabelValues(collector).Inc()
	}
}

// ObserveDockerPoll records the outcome of one background poll.
func (m *Metrics) ObserveDockerPoll(containers int, err error) {
	if m == nil {
		return
	}
	m.dockerPolls.Inc()
	if err != nil {
		m.dockerPollFailures.Inc()
		return
	}
	m.containers.Set(float64(containers))
}

// ObserveContainerOp records one finished lifecycle command.
func (m *Metrics) ObserveContainerOp(action string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.containerOps.WithLabelValues(action, result).Inc()
}

// SetPendingOps records the number of unreconciled lifecycle operations.
func (m *Metrics) SetPendingOps(n int) {
	if m == nil {
		return
	}
	m.pendingOps.Set(float64(n))
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteText writes every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
