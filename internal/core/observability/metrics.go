// Package observability holds the service's Prometheus collectors.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var enabled atomic.Bool

// collectors are created unregistered; Init attaches them to a registry
var factory = promauto.With(nil)

var (
	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"method", "route", "status"},
	)

	searchSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_search_submissions_total",
			Help: "Manual location submissions by outcome.",
		},
		[]string{"outcome"},
	)

	invalidCoordinates = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "records_invalid_coordinates",
			Help: "Loaded records that never get a marker because a coordinate does not parse, by source.",
		},
		[]string{"source"},
	)

	activeSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_sessions_active",
			Help: "Dashboard sessions currently held in memory.",
		},
	)

	recordsLoaded = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "records_loaded",
			Help: "Records in the loaded collection, by source.",
		},
		[]string{"source"},
	)

	recordsSkipped = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "records_skipped",
			Help: "Source rows dropped while loading the collection, by source.",
		},
		[]string{"source"},
	)

	storeOpTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	storeOpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		searchSubmissions,
		invalidCoordinates,
		activeSessions,
		recordsLoaded,
		recordsSkipped,
		storeOpTotal,
		storeOpDuration,
	}
}

// Init registers the collectors on reg. Registering on the same registry
// twice is tolerated.
func Init(reg prometheus.Registerer, on bool) {
	enabled.Store(on)
	if reg == nil || !on {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func IncSearch(accepted bool) {
	if accepted {
		searchSubmissions.WithLabelValues("accepted").Inc()
		return
	}
	searchSubmissions.WithLabelValues("rejected").Inc()
}

func SetInvalidCoordinates(source string, n int) {
	invalidCoordinates.WithLabelValues(source).Set(float64(n))
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func SetRecordsLoaded(source string, n int) {
	recordsLoaded.WithLabelValues(source).Set(float64(n))
}

func SetRecordsSkipped(source string, n int) {
	recordsSkipped.WithLabelValues(source).Set(float64(n))
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOpTotal.WithLabelValues(op, result).Inc()
	storeOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func Enabled() bool { return enabled.Load() }
