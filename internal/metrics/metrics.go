package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "candidacy_graph"

// Metrics holds the collectors exported by the service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	rebuildDuration  prometheus.Histogram
	rebuildTotal     *prometheus.CounterVec
	chainSearch      prometheus.Histogram
	chainsFound      prometheus.Gauge
	graphNodes       prometheus.Gauge
	graphEdges       prometheus.Gauge
	httpRequestTotal *prometheus.CounterVec
}

// New registers the service collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full graph rebuilds.",
			Buckets:   prometheus.DefBuckets,
		}),
		rebuildTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_total",
			Help:      "Graph rebuilds by outcome.",
		}, []string{"outcome"}),
		chainSearch: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_search_duration_seconds",
			Help:      "Duration of interlocking chain searches.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		chainsFound: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chains_found",
			Help:      "Number of distinct chains returned by the last search.",
		}),
		graphNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Person nodes after the last successful rebuild.",
		}),
		graphEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Candidacy edges after the last successful rebuild.",
		}),
		httpRequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "method", "status"}),
	}
}

// ObserveRebuild records a finished rebuild.
func (m *Metrics) ObserveRebuild(started time.Time, nodes, edges int64, err error) {
	if m == nil {
		return
	}
	m.rebuildDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		m.rebuildTotal.WithLabelValues("error").Inc()
		return
	}
	m.rebuildTotal.WithLabelValues("ok").Inc()
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
}

// ObserveChainSearch records a finished chain search.
func (m *Metrics) ObserveChainSearch(started time.Time, found int) {
	if m == nil {
		return
	}
	m.chainSearch.Observe(time.Since(started).Seconds())
	m.chainsFound.Set(float64(found))
}

// ObserveRequest counts a served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequestTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
