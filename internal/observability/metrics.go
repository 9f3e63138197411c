package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	scanBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedscan_scan_batches_total",
			Help: "Total number of row batches emitted per provider.",
		},
		[]string{"provider"},
	)

	scanRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedscan_scan_rows_total",
			Help: "Total number of rows emitted per provider.",
		},
		[]string{"provider"},
	)

	scanDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedscan_scan_duration_seconds",
			Help:    "End-to-end scan duration per provider.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	credentialOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedscan_credential_ops_total",
			Help: "Credential store operations by kind.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(scanBatchesTotal, scanRowsTotal, scanDurationSeconds, credentialOpsTotal)
}

func ObserveBatch(provider string, rows int) {
	scanBatchesTotal.WithLabelValues(provider).Inc()
	scanRowsTotal.WithLabelValues(provider).Add(float64(rows))
}

func ObserveScan(provider, outcome string, elapsed time.Duration) {
	scanDurationSeconds.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())
}

func ObserveCredentialOp(op string) {
	credentialOpsTotal.WithLabelValues(op).Inc()
}
