// Package metrics holds the Prometheus collectors shared by the binaries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kharcha"

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	expenseEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expenses",
			Name:      "events_total",
			Help:      "Expenses created and deleted.",
		},
		[]string{"op"},
	)

	rejectedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expenses",
			Name:      "rejected_records_total",
			Help:      "Backend records skipped because they could not be normalized.",
		},
		[]string{"reason"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
		},
		[]string{"result"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the expense backend and identity provider.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"service", "status"},
	)

	suspiciousRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "security",
			Name:      "suspicious_requests_total",
		},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
		},
	)
)

// ObserveHTTP records one handled request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ExpenseCreated counts a successful add.
func ExpenseCreated() { expenseEvents.WithLabelValues("created").Inc() }

// ExpenseDeleted counts a successful delete.
func ExpenseDeleted() { expenseEvents.WithLabelValues("deleted").Inc() }

// RecordRejected counts a skipped record by reason.
func RecordRejected(reason string) { rejectedRecords.WithLabelValues(reason).Inc() }

// CacheHit and CacheMiss count read-cache lookups.
func CacheHit()  { cacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

// ObserveUpstream records one outbound call; status is "ok" or an HTTP code.
func ObserveUpstream(service, status string, elapsed time.Duration) {
	upstreamDuration.WithLabelValues(service, status).Observe(elapsed.Seconds())
}

// SuspiciousRequest counts a request flagged by the security detector.
func SuspiciousRequest() { suspiciousRequests.Inc() }

// RateLimited counts a request rejected by the rate limiter.
func RateLimited() { rateLimited.Inc() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
