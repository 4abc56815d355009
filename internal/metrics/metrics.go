// Package metrics counts engine outcomes in Prometheus form and writes
// them as a node_exporter textfile at the end of a run.
package metrics

import (
	"os"
	"path/filepath"

	"filewatch/internal/errors"
	"filewatch/internal/organize"
	"filewatch/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filewatch"

// Collector holds the Prometheus metrics for a run and reports engine
// notifications into them.
type Collector struct {
	organize.NopReporter

	registry *prometheus.Registry

	FilesProcessed *prometheus.CounterVec
	ActionsTotal   *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	RulesTotal     prometheus.Counter
	LastRun        prometheus.Gauge
}

// New creates a collector with its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		FilesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_processed_total",
				Help:      "Files handled by an action, by outcome (ok, planned, skipped, failed)",
			},
			[]string{"rule", "action", "outcome"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Actions executed, by outcome (ok, partial, error)",
			},
			[]string{"rule", "action", "outcome"},
		),
		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Wall time of one action including its scan",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"action"},
		),
		RulesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_total",
				Help:      "Rules started",
			},
		),
		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RuleStarted(string, *types.Rule) {
	c.RulesTotal.Inc()
}

func (c *Collector) FileProcessed(res types.FileResult) {
	c.FilesProcessed.WithLabelValues(res.Rule, res.Action.String(), res.Outcome()).Inc()
}

func (c *Collector) ActionFinished(s organize.ActionSummary) {
	outcome := "ok"
	switch {
	case s.Err != nil:
		outcome = "error"
	case s.Failed > 0:
		outcome = "partial"
	}
	c.ActionsTotal.WithLabelValues(s.Rule, s.Type.String(), outcome).Inc()
	c.ActionDuration.WithLabelValues(s.Type.String()).Observe(s.Duration.Seconds())
}

// WriteTextfile stamps the run as finished and writes every metric to
// path in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	c.LastRun.SetToCurrentTime()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewFileOpError("create metrics directory", path, err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.NewFileOpError("write metrics file", path, err)
	}
	return nil
}

var _ organize.Reporter = (*Collector)(nil)
