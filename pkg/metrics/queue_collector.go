package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/courier/pkg/queue"
)

// QueueCollector reports entry counts per status, read from the store at
// scrape time.
type QueueCollector struct {
	store   queue.Storage
	timeout time.Duration

	entries *prometheus.Desc
	up      *prometheus.Desc
}

// NewQueueCollector creates a collector over store. Register it with
// Metrics.Registry().MustRegister.
func NewQueueCollector(store queue.Storage, timeout time.Duration) *QueueCollector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QueueCollector{
		store:   store,
		timeout: timeout,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "entries"),
			"Retry queue entries in the durable store, by status.",
			[]string{"status"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "store_up"),
			"Whether the last scrape could read the durable queue store.",
			nil, nil,
		),
	}
}

func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.up
}

func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	for _, st := range queue.AllStatuses {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(counts[st]), string(st))
	}
}
