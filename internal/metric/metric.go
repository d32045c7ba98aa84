// Package metric counts codec calls and their diagnostics with Prometheus.
package metric

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/parser"
)

const namespace = "slurmcodec"

// Status label of a successful call.
const statusOK = "ok"

// Metrics implements parser.Observer.
type Metrics struct {
	calls       *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	catalogs    *prometheus.GaugeVec
	reloaded    prometheus.Gauge
}

var _ parser.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "calls_total",
				Help:      "Top-level parse and dump calls by type and outcome class",
			},
			[]string{"op", "type", "status"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codec",
				Name:      "diagnostics_total",
				Help:      "Diagnostics recorded by codec calls",
			},
			[]string{"op", "severity", "code"},
		),
		catalogs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "records",
				Help:      "Records in the loaded catalogs",
			},
			[]string{"catalog"},
		),
		reloaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "loaded_timestamp_seconds",
				Help:      "Time the catalogs were last loaded",
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.calls, m.diagnostics, m.catalogs, m.reloaded} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				return nil, fmt.Errorf("codec metrics already registered: %w", err)
			}
			return nil, fmt.Errorf("failed to register codec metrics: %w", err)
		}
	}
	return m, nil
}

// Calls returns the call counter.
func (m *Metrics) Calls() *prometheus.CounterVec { return m.calls }

// Diagnostics returns the diagnostic counter.
func (m *Metrics) Diagnostics() *prometheus.CounterVec { return m.diagnostics }

// Catalogs returns the catalog size gauge.
func (m *Metrics) Catalogs() *prometheus.GaugeVec { return m.catalogs }

// Loaded returns the last load time gauge.
func (m *Metrics) Loaded() prometheus.Gauge { return m.reloaded }

// ObserveCall implements parser.Observer.
func (m *Metrics) ObserveCall(op string, typ parser.TypeID, err error) {
	status := statusOK
	if err != nil {
		status = diag.ClassOf(diag.CodeOf(err)).String()
	}
	m.calls.WithLabelValues(op, string(typ), status).Inc()
}

// ObserveDiagnostic implements parser.Observer.
func (m *Metrics) ObserveDiagnostic(op string, d diag.Diagnostic) {
	m.diagnostics.WithLabelValues(op, d.Severity.String(), string(d.Code)).Inc()
}

// ObserveCatalogs records the size of each catalog after a load.
func (m *Metrics) ObserveCatalogs(counts map[string]int, at time.Time) {
	for name, n := range counts {
		m.catalogs.WithLabelValues(name).Set(float64(n))
	}
	m.reloaded.Set(float64(at.Unix()))
}
