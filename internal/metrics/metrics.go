// Package metrics exports audit gate results in the Prometheus text format
// for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucasnoah/auditgate/internal/audit"
)

// Collector holds the gauges describing the most recent audit run.
type Collector struct {
	reg             *prometheus.Registry
	vulnerabilities *prometheus.GaugeVec
	gateFailed      *prometheus.GaugeVec
	duration        prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewCollector creates a Collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		vulnerabilities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditgate",
			Name:      "vulnerabilities",
			Help:      "Vulnerabilities reported by the last audit, by severity.",
		}, []string{"severity"}),
		gateFailed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditgate",
			Name:      "gate_failed",
			Help:      "Whether the last audit failed the gate (1) or not (0).",
		}, []string{"manager", "verdict"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditgate",
			Name:      "audit_duration_seconds",
			Help:      "Duration of the last audit command in seconds.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditgate",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last audit run.",
		}),
	}
	c.reg.MustRegister(c.vulnerabilities, c.gateFailed, c.duration, c.lastRun)
	return c
}

// Observe records a result. now is the time stamped on the run.
func (c *Collector) Observe(res *audit.Result, now time.Time) {
	c.vulnerabilities.WithLabelValues("low").Set(float64(res.Counts.Low))
	c.vulnerabilities.WithLabelValues("moderate").Set(float64(res.Counts.Moderate))
	c.vulnerabilities.WithLabelValues("high").Set(float64(res.Counts.High))
	c.vulnerabilities.WithLabelValues("critical").Set(float64(res.Counts.Critical))

	c.gateFailed.Reset()
	failed := 0.0
	if res.Verdict.Failed() {
		failed = 1
	}
	c.gateFailed.WithLabelValues(res.Manager, string(res.Verdict)).Set(failed)

	c.duration.Set(float64(res.DurationMs) / 1000)
	c.lastRun.Set(float64(now.Unix()))
}

// WriteTextfile atomically writes all gauges to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
