package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classcast"

// Metrics holds the coordinator's collectors.
type Metrics struct {
	Conferences    prometheus.Gauge
	Connections    prometheus.Gauge
	EventsReceived *prometheus.CounterVec
	EventsSent     *prometheus.CounterVec
	EventErrors    *prometheus.CounterVec
	RelayDropped   prometheus.Counter
	NoResponses    prometheus.Counter
	AuditFailures  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Conferences: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "conferences",
			Help: "Conferences currently in the registry.",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open real-time connections.",
		}),
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_received_total",
			Help: "Client events accepted by the hub, by type.",
		}, []string{"type"}),
		EventsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_sent_total",
			Help: "Events queued to clients, by type.",
		}, []string{"type"}),
		EventErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "event_errors_total",
			Help: "Client events answered with an error, by kind.",
		}, []string{"kind"}),
		RelayDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_dropped_total",
			Help: "Outbound events dropped because a client queue was full.",
		}),
		NoResponses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "no_responses_total",
			Help: "Student calls that expired without a response.",
		}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "audit_failures_total",
			Help: "Audit records that could not be written.",
		}),
		gatherer: reg,
	}
}

// Handler exposes the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer is exposed for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}
