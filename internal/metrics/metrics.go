// Package metrics exposes Prometheus counters for the packet plane.
// Nothing in the packet plane reads these back — they are purely
// observational, so a nil *Metrics (the zero value for "not wired up",
// e.g. in unit tests that construct a Router directly) is always safe to
// call methods on.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the packet-plane counters. The zero value is not usable;
// construct with New. A nil *Metrics is usable: every method is a no-op
// in that case, so packages that take an optional *Metrics don't need to
// branch on whether metrics were configured.
type Metrics struct {
	packetsFromVirtual  prometheus.Counter
	packetsFromExternal prometheus.Counter
	bytesFromVirtual    prometheus.Counter
	bytesFromExternal   prometheus.Counter
	unknownClientDrops  prometheus.Counter
	receiveErrors       *prometheus.CounterVec
	sendErrors          *prometheus.CounterVec
}

// New builds a Metrics instance and registers its collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsFromVirtual: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "packets_from_virtual_total",
			Help:      "IP packets routed from the virtual interface to external peers.",
		}),
		packetsFromExternal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "packets_from_external_total",
			Help:      "IP packets routed from external peers to the virtual interface.",
		}),
		bytesFromVirtual: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "bytes_from_virtual_total",
			Help:      "Bytes routed from the virtual interface to external peers.",
		}),
		bytesFromExternal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "bytes_from_external_total",
			Help:      "Bytes routed from external peers to the virtual interface.",
		}),
		unknownClientDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "unknown_client_drops_total",
			Help:      "Packets dropped because their overlay destination had no known external address.",
		}),
		receiveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "receive_errors_total",
			Help:      "Receive-loop errors per endpoint kind.",
		}, []string{"endpoint"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overpass",
			Name:      "send_errors_total",
			Help:      "Send errors per endpoint kind.",
		}, []string{"endpoint"}),
	}

	reg.MustRegister(
		m.packetsFromVirtual, m.packetsFromExternal,
		m.bytesFromVirtual, m.bytesFromExternal,
		m.unknownClientDrops, m.receiveErrors, m.sendErrors,
	)

	return m
}

func (m *Metrics) AddFromVirtual(n int) {
	if m == nil {
		return
	}
	m.packetsFromVirtual.Inc()
	m.bytesFromVirtual.Add(float64(n))
}

func (m *Metrics) AddFromExternal(n int) {
	if m == nil {
		return
	}
	m.packetsFromExternal.Inc()
	m.bytesFromExternal.Add(float64(n))
}

func (m *Metrics) IncUnknownClientDrops() {
	if m == nil {
		return
	}
	m.unknownClientDrops.Inc()
}

func (m *Metrics) IncReceiveError(endpointKind string) {
	if m == nil {
		return
	}
	m.receiveErrors.WithLabelValues(endpointKind).Inc()
}

func (m *Metrics) IncSendError(endpointKind string) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(endpointKind).Inc()
}
