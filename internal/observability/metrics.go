package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	gntpConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gntpd",
			Subsystem: "gntp",
			Name:      "connections_total",
			Help:      "Total accepted GNTP connections.",
		},
	)
	gntpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gntpd",
			Subsystem: "gntp",
			Name:      "requests_total",
			Help:      "GNTP requests by message type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	gntpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gntpd",
			Subsystem: "gntp",
			Name:      "request_duration_seconds",
			Help:      "GNTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)
	resourceBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gntpd",
			Subsystem: "gntp",
			Name:      "resource_bytes_total",
			Help:      "Embedded resource payload bytes consumed off the wire.",
		},
		[]string{"cached"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(gntpConnections, gntpRequests, gntpDuration, resourceBytes)
	})
}

func RecordConnection() {
	RegisterMetrics()
	gntpConnections.Inc()
}

func RecordRequest(messageType, outcome string, duration time.Duration) {
	RegisterMetrics()
	if messageType == "" {
		messageType = "unknown"
	}
	gntpRequests.WithLabelValues(messageType, outcome).Inc()
	gntpDuration.WithLabelValues(messageType, outcome).Observe(duration.Seconds())
}

func RecordResourceBytes(n int64, cached bool) {
	RegisterMetrics()
	label := "false"
	if cached {
		label = "true"
	}
	resourceBytes.WithLabelValues(label).Add(float64(n))
}
