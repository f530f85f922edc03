// Package metrics defines the prometheus collectors shared by the KV facade,
// the change notifiers and the content bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the peerstore collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	kvOps           *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	callbackPanics  *prometheus.CounterVec
	bridgeOps       *prometheus.CounterVec
	externalChanges *prometheus.CounterVec
}

// New constructs the collectors and registers them with reg.
// A nil reg leaves them unregistered, which keeps independent instances
// (tests, several stores in one process) from colliding.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		kvOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peerstore",
				Subsystem: "kv",
				Name:      "operations_total",
				Help:      "KV facade operations by logical key, operation and result.",
			},
			[]string{"key", "op", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peerstore",
				Subsystem: "notifier",
				Name:      "deliveries_total",
				Help:      "Snapshots delivered to subscribers.",
			},
			[]string{"collection"},
		),
		callbackPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peerstore",
				Subsystem: "notifier",
				Name:      "callback_panics_total",
				Help:      "Subscriber callbacks that panicked during delivery.",
			},
			[]string{"collection"},
		),
		bridgeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peerstore",
				Subsystem: "bridge",
				Name:      "operations_total",
				Help:      "Content bridge calls by operation and result.",
			},
			[]string{"op", "result"},
		),
		externalChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peerstore",
				Subsystem: "kv",
				Name:      "external_changes_total",
				Help:      "Writes to the durable medium observed from other processes.",
			},
			[]string{"key"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.kvOps, m.notifications, m.callbackPanics, m.bridgeOps, m.externalChanges)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// KVOp records one facade operation.
func (m *Metrics) KVOp(key, op string, err error) {
	if m == nil {
		return
	}
	m.kvOps.WithLabelValues(key, op, result(err)).Inc()
}

// Delivered records one snapshot delivery.
func (m *Metrics) Delivered(collection string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(collection).Inc()
}

// CallbackPanicked records a recovered subscriber panic.
func (m *Metrics) CallbackPanicked(collection string) {
	if m == nil {
		return
	}
	m.callbackPanics.WithLabelValues(collection).Inc()
}

// BridgeOp records one content bridge call.
func (m *Metrics) BridgeOp(op string, err error) {
	if m == nil {
		return
	}
	m.bridgeOps.WithLabelValues(op, result(err)).Inc()
}

// ExternalChange records a change made to a key by another process.
func (m *Metrics) ExternalChange(key string) {
	if m == nil {
		return
	}
	m.externalChanges.WithLabelValues(key).Inc()
}

// KVOps exposes the facade counter for tests and exporters.
func (m *Metrics) KVOps() *prometheus.CounterVec { return m.kvOps }

// Deliveries exposes the delivery counter.
func (m *Metrics) Deliveries() *prometheus.CounterVec { return m.notifications }

// CallbackPanics exposes the panic counter.
func (m *Metrics) CallbackPanics() *prometheus.CounterVec { return m.callbackPanics }

// BridgeOps exposes the bridge counter.
func (m *Metrics) BridgeOps() *prometheus.CounterVec { return m.bridgeOps }

// ExternalChanges exposes the external change counter.
func (m *Metrics) ExternalChanges() *prometheus.CounterVec { return m.externalChanges }
