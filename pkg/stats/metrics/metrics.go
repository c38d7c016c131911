// Package metrics exposes accumulator activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const namespace = "varstats"

// Metrics is safe for concurrent use. A nil *Metrics discards everything.
type Metrics struct {
	samples    prometheus.Counter
	levels     prometheus.Gauge
	reductions prometheus.Counter
	failures   prometheus.Counter
}

func newMetrics(name string) *Metrics {
	labels := prometheus.Labels{"accumulator": name}
	return &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "samples_total",
			Help:        "Samples accumulated.",
			ConstLabels: labels,
		}),
		levels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "binning_levels",
			Help:        "Binning levels, raw level included, of the accumulator that last took a sample.",
			ConstLabels: labels,
		}),
		reductions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "reductions_total",
			Help:        "Partial results pooled into another.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "failures_total",
			Help:        "Rejected samples and failed reductions.",
			ConstLabels: labels,
		}),
	}
}

// New creates the metrics of the accumulator called name and registers them.
func New(reg prometheus.Registerer, name string) (*Metrics, error) {
	m := newMetrics(name)
	var err error
	for _, c := range m.collectors() {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Discard returns metrics that are never registered.
func Discard() *Metrics {
	return newMetrics("discard")
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.samples, m.levels, m.reductions, m.failures}
}

// ObserveSample records one accepted sample and the resulting number of
// binning levels.
func (m *Metrics) ObserveSample(levels int) {
	if m == nil {
		return
	}
	m.samples.Inc()
	m.levels.Set(float64(levels))
}

func (m *Metrics) ObserveReduction() {
	if m == nil {
		return
	}
	m.reductions.Inc()
}

func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
