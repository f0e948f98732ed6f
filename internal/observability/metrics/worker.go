package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

const namespace = "hrr"

// WorkerMetrics records retrieval and routing outcomes on a private registry.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	subSearchTotal    *prometheus.CounterVec
	subSearchDuration *prometheus.HistogramVec
	subSearchResults  *prometheus.HistogramVec
	routingTotal      *prometheus.CounterVec
	documentRoutes    *prometheus.CounterVec
	documentDuration  *prometheus.HistogramVec
	documentInFlight  prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	subSearchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "subsearch_total",
			Help:      "Sub-search executions by name and status.",
		},
		[]string{"service", "name", "status"},
	)
	subSearchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "subsearch_duration_seconds",
			Help:      "Sub-search duration in seconds by name.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"service", "name"},
	)
	subSearchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "subsearch_results",
			Help:      "Chunks returned per successful sub-search.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"service", "name"},
	)
	routingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Query routing decisions by model and strategy.",
		},
		[]string{"service", "model", "strategy"},
	)
	documentRoutes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "document_routes_total",
			Help:      "Ingestion-time document routing decisions by model.",
		},
		[]string{"service", "model"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_route_duration_seconds",
			Help:      "Document routing event handling duration by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	documentInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_route_in_flight",
			Help:      "Number of in-flight document routing events.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(subSearchTotal, subSearchDuration, subSearchResults, routingTotal,
		documentRoutes, documentDuration, documentInFlight)

	return &WorkerMetrics{
		service:           service,
		registry:          registry,
		subSearchTotal:    subSearchTotal,
		subSearchDuration: subSearchDuration,
		subSearchResults:  subSearchResults,
		routingTotal:      routingTotal,
		documentRoutes:    documentRoutes,
		documentDuration:  documentDuration,
		documentInFlight:  documentInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveSubSearch(name string, results int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.subSearchTotal.WithLabelValues(m.service, name, status).Inc()
	m.subSearchDuration.WithLabelValues(m.service, name).Observe(duration.Seconds())
	if err == nil {
		m.subSearchResults.WithLabelValues(m.service, name).Observe(float64(results))
	}
}

func (m *WorkerMetrics) ObserveDecision(decision domain.RoutingDecision) {
	m.routingTotal.WithLabelValues(m.service, string(decision.SelectedModel), string(decision.Strategy)).Inc()
}

func (m *WorkerMetrics) ObserveDocumentRoute(decision domain.RoutingDecision) {
	m.documentRoutes.WithLabelValues(m.service, string(decision.SelectedModel)).Inc()
}

func (m *WorkerMetrics) StartDocument() {
	m.documentInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.documentInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.documentDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}
