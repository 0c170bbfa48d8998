package telemetry

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservations(t *testing.T) {
	m := New()
	m.ObserveCollect("ports", time.Now(), nil)
	m.ObserveCollect("ports", time.Now(), errors.New("boom"))
	m.ObserveDockerPoll(3, nil)
	m.ObserveDockerPoll(0, errors.New("engine down"))
	m.ObserveContainerOp("stop", true)
	m.ObserveContainerOp("stop", false)
	m.SetPendingOps(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.collectErrors.WithLabelValues("ports")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dockerPolls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dockerPollFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.containers), "failed polls keep the last count")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.containerOps.WithLabelValues("stop", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pendingOps))
}

func TestWriteText(t *testing.T) {
	m := New()
	m.ObserveDockerPoll(1, nil)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.True(t, strings.Contains(out, "spark_docker_polls_total 1"))
	assert.True(t, strings.Contains(out, "# TYPE spark_docker_containers gauge"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCollect("x", time.Now(), errors.New("e"))
		m.ObserveDockerPoll(1, nil)
		m.ObserveContainerOp("kill", true)
		m.SetPendingOps(1)
	})
}
