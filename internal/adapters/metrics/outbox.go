package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxCounter reports outbox entries per status.
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// outboxBacklog queries the outbox on every scrape.
type outboxBacklog struct {
	counter OutboxCounter
	timeout time.Duration
	desc    *prometheus.Desc
}

// RegisterOutboxBacklog exposes clubhouse_outbox_entries{status} backed by counter.
func RegisterOutboxBacklog(reg prometheus.Registerer, counter OutboxCounter) {
	reg.MustRegister(&outboxBacklog{
		counter: counter,
		timeout: 2 * time.Second,
		desc: prometheus.NewDesc(
			"clubhouse_outbox_entries",
			"Outbox entries by delivery status.",
			[]string{"status"}, nil,
		),
	})
}

func (b *outboxBacklog) Describe(ch chan<- *prometheus.Desc) {
	ch <- b.desc
}

func (b *outboxBacklog) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	counts, err := b.counter.CountByStatus(ctx)
	if err != nil {
		slog.Warn("metrics_event", "event", "outbox_count_failed", "error", err)
		ch <- prometheus.NewInvalidMetric(b.desc, err)
		return
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(b.desc, prometheus.GaugeValue, float64(n), status)
	}
}
