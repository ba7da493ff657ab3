package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveRebuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRebuild(time.Now(), 3, 4, nil)
	m.ObserveRebuild(time.Now(), 0, 0, errors.New("unavailable"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuildTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuildTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.graphNodes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.graphEdges))
}

func TestMetrics_ObserveRequestAndChains(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/graph/chains", http.MethodGet, http.StatusOK)
	m.ObserveRequest("/graph/chains", http.MethodGet, http.StatusOK)
	m.ObserveChainSearch(time.Now(), 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestTotal.WithLabelValues("/graph/chains", "GET", "200")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.chainsFound))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRebuild(time.Now(), 1, 1, nil)
		m.ObserveChainSearch(time.Now(), 1)
		m.ObserveRequest("/", "GET", 200)
	})
}
