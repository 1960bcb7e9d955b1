// Package metrics exposes Prometheus counters for money movement and
// bot activity. Registration is global via promauto; the API binary
// serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pocketbank_settlements_total",
			Help: "Settlement attempts labeled by transaction kind and status",
		},
		[]string{"kind", "status"},
	)
	botCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pocketbank_bot_cycles_total",
			Help: "Completed demand-bot cycles",
		},
	)
	botPurchasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pocketbank_bot_purchases_total",
			Help: "Purchases committed by the demand bot",
		},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pocketbank_http_request_duration_seconds",
			Help:    "HTTP request duration by method and path pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordSettlement counts one settlement attempt outcome.
func RecordSettlement(kind, status string) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	settlementsTotal.WithLabelValues(kind, status).Inc()
}

// RecordBotCycle counts a finished bot cycle and its purchases.
func RecordBotCycle(purchases int) {
	botCyclesTotal.Inc()
	if purchases > 0 {
		botPurchasesTotal.Add(float64(purchases))
	}
}

// ObserveRequest records one HTTP request's duration.
func ObserveRequest(method, path string, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
