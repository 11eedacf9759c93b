// Package prometheus exports linkedseq metrics to Prometheus.
//
//	c := prometheus.NewCollector("linkedseq")
//	c.MustRegister(prom.DefaultRegisterer)
//	db, err := linkedseq.Open(ctx, linkedseq.WithMetricsCollector(c))
package prometheus

import (
	"time"

	"github.com/hupe1980/linkedseq"
	prom "github.com/prometheus/client_golang/prometheus"
)

var _ linkedseq.MetricsCollector = (*Collector)(nil)

// Collector implements linkedseq.MetricsCollector with Prometheus
// histograms and counters.
type Collector struct {
	opLatency         *prom.HistogramVec
	ops               *prom.CounterVec
	checkpoints       *prom.CounterVec
	checkpointBytes   prom.Counter
	checkpointLatency prom.Histogram
}

// NewCollector creates the metrics with the given namespace. They are not
// registered; call Register or MustRegister.
func NewCollector(namespace string) *Collector {
	return &Collector{
		opLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of list operations",
			Buckets:   prom.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"op", "status"}),
		ops: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "List operations by kind",
		}, []string{"kind", "op", "status"}),
		checkpoints: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoint attempts",
		}, []string{"status"}),
		checkpointBytes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_bytes_total",
			Help:      "Bytes of snapshot images uploaded",
		}),
		checkpointLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Duration of successful checkpoints",
			Buckets:   prom.DefBuckets,
		}),
	}
}

func (c *Collector) collectors() []prom.Collector {
	return []prom.Collector{c.opLatency, c.ops, c.checkpoints, c.checkpointBytes, c.checkpointLatency}
}

// Register registers every metric with r.
func (c *Collector) Register(r prom.Registerer) error {
	for _, m := range c.collectors() {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Collector) MustRegister(r prom.Registerer) {
	r.MustRegister(c.collectors()...)
}

// RecordMutation implements linkedseq.MetricsCollector.
func (c *Collector) RecordMutation(op string, d time.Duration, err error) {
	c.observe("mutation", op, d, err)
}

// RecordRead implements linkedseq.MetricsCollector.
func (c *Collector) RecordRead(op string, d time.Duration, err error) {
	c.observe("read", op, d, err)
}

// RecordCheckpoint implements linkedseq.MetricsCollector.
func (c *Collector) RecordCheckpoint(bytes int64, d time.Duration, err error) {
	s := status(err)
	c.checkpoints.WithLabelValues(s).Inc()
	if err != nil {
		return
	}
	c.checkpointBytes.Add(float64(bytes))
	c.checkpointLatency.Observe(d.Seconds())
}

func (c *Collector) observe(kind, op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(kind, op, s).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
