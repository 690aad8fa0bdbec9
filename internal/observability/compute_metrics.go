package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ComputeCollector exposes Prometheus metrics for the simulation compute path.
type ComputeCollector struct {
	gatherer prometheus.Gatherer

	RenderDuration   *prometheus.HistogramVec
	SnapshotDuration prometheus.Histogram
	ArrayBuilds      prometheus.Counter
}

// NewComputeCollector registers compute metrics against the provided registerer.
func NewComputeCollector(reg prometheus.Registerer) (*ComputeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	renderHistogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pattern_render_duration_seconds",
		Help:    "Duration of beam pattern renders, labeled by pattern kind.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"pattern"})
	renderHistogram, err := registerHistogramVec(reg, renderHistogram, "pattern_render_duration_seconds")
	if err != nil {
		return nil, err
	}

	snapshotHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_generation_duration_seconds",
		Help:    "Duration of received signal snapshot generation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	snapshotHistogram, err = registerHistogram(reg, snapshotHistogram, "snapshot_generation_duration_seconds")
	if err != nil {
		return nil, err
	}

	builds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "array_builds_total",
		Help: "Cumulative number of arrays configured across all sessions.",
	})
	builds, err = registerCounter(reg, builds, "array_builds_total")
	if err != nil {
		return nil, err
	}

	return &ComputeCollector{
		gatherer:         gatherer,
		RenderDuration:   renderHistogram,
		SnapshotDuration: snapshotHistogram,
		ArrayBuilds:      builds,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ComputeCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveRender records the duration of a single pattern render.
func (c *ComputeCollector) ObserveRender(pattern string, d time.Duration) {
	if c == nil || c.RenderDuration == nil {
		return
	}
	c.RenderDuration.WithLabelValues(pattern).Observe(d.Seconds())
}

// ObserveSnapshot records the duration of a snapshot generation.
func (c *ComputeCollector) ObserveSnapshot(d time.Duration) {
	if c == nil || c.SnapshotDuration == nil {
		return
	}
	c.SnapshotDuration.Observe(d.Seconds())
}

// IncArrayBuilds increments the array build counter.
func (c *ComputeCollector) IncArrayBuilds() {
	if c == nil || c.ArrayBuilds == nil {
		return
	}
	c.ArrayBuilds.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
