package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the game server.
//
// A nil *Metrics is valid; every recording method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	commandsTotal    *prometheus.CounterVec
	commandErrors    *prometheus.CounterVec
	publishedTotal   prometheus.Counter
	sinkDroppedTotal prometheus.Counter
	storageUp        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private registry
// alongside the Go runtime and process collectors.
//
// Postcondition: Returns a non-nil Metrics whose Handler serves every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mud_connections_total",
			Help: "Total accepted connections by transport.",
		}, []string{"transport"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mud_connections_rejected_total",
			Help: "Connections closed before reaching the command loop, by reason.",
		}, []string{"reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mud_sessions_active",
			Help: "Number of authenticated sessions currently online.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mud_commands_total",
			Help: "Commands dispatched by verb.",
		}, []string{"command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mud_command_errors_total",
			Help: "Commands that ended in an error, by error class.",
		}, []string{"class"}),
		publishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mud_bus_published_total",
			Help: "Messages published on the broadcast bus.",
		}),
		sinkDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mud_sink_dropped_total",
			Help: "Pending session messages discarded because a sink was full.",
		}),
		storageUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mud_storage_up",
			Help: "1 when the last storage health check succeeded.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connectionsTotal,
		m.rejectedTotal,
		m.sessionsActive,
		m.commandsTotal,
		m.commandErrors,
		m.publishedTotal,
		m.sinkDroppedTotal,
		m.storageUp,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler serving the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectionAccepted counts a new connection on transport.
func (m *Metrics) ConnectionAccepted(transport string) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(transport).Inc()
}

// ConnectionRejected counts a connection turned away for reason.
func (m *Metrics) ConnectionRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// SessionOpened increments the online session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the online session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// CommandDispatched counts one dispatched command verb.
func (m *Metrics) CommandDispatched(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

// CommandFailed counts one command error of the given class.
func (m *Metrics) CommandFailed(class string) {
	if m == nil {
		return
	}
	m.commandErrors.WithLabelValues(class).Inc()
}

// MessagePublished counts one bus publication.
func (m *Metrics) MessagePublished() {
	if m == nil {
		return
	}
	m.publishedTotal.Inc()
}

// MessageDropped counts one message discarded by a full sink.
func (m *Metrics) MessageDropped() {
	if m == nil {
		return
	}
	m.sinkDroppedTotal.Inc()
}

// StorageHealthy records the outcome of a storage health check.
func (m *Metrics) StorageHealthy(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.storageUp.Set(1)
		return
	}
	m.storageUp.Set(0)
}
