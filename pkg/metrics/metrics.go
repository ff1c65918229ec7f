// Package metrics provides Prometheus instrumentation for the portal client.
//
// Collectors cover the three places the client talks to the outside world:
// backend calls through the gateway, the push event channel, and order feed
// refreshes. The web UI mounts Handler on GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aquaportal"

// ─────────────────────────────────────────────
// Backend calls
// ─────────────────────────────────────────────

var (
	// BackendDuration tracks backend call latency by method, route template
	// and status ("0" for transport failures).
	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend REST calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BackendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of backend REST calls.",
		},
		[]string{"method", "route", "status"},
	)
)

// ─────────────────────────────────────────────
// Event channel
// ─────────────────────────────────────────────

var (
	EventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Push events received, by event name.",
		},
		[]string{"event"},
	)

	// ChannelConnects counts connection attempts by outcome:
	// "connected" | "auth_failed" | "failed".
	ChannelConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "connects_total",
			Help:      "Event channel connection attempts by outcome.",
		},
		[]string{"outcome"},
	)

	ChannelUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "connected",
		Help:      "1 while the event channel is connected.",
	})
)

// ─────────────────────────────────────────────
// Order feeds
// ─────────────────────────────────────────────

// FeedRefreshes counts feed refreshes by feed and outcome:
// "applied" | "stale" | "failed".
var FeedRefreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "refreshes_total",
		Help:      "Order feed refreshes by outcome.",
	},
	[]string{"feed", "outcome"},
)

// ─────────────────────────────────────────────
// Web UI
// ─────────────────────────────────────────────

var (
	PageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "request_duration_seconds",
			Help:      "Duration of web UI requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	PagesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "requests_in_flight",
		Help:      "Number of web UI requests currently being served.",
	})
)

// ─────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────

// DefaultRegistry is the Prometheus registry used by the portal.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		BackendDuration,
		BackendTotal,
		EventsReceived,
		ChannelConnects,
		ChannelUp,
		FeedRefreshes,
		PageDuration,
		PagesInFlight,
	)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// ObserveBackend records one backend call:
//
//	defer metrics.ObserveBackend("GET", "/orders", status, time.Now())
func ObserveBackend(method, route string, status int, start time.Time) {
	code := strconv.Itoa(status)
	BackendDuration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
	BackendTotal.WithLabelValues(method, route, code).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streams working through the recorder.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records duration and in-flight count for every web UI request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			PagesInFlight.Inc()
			defer PagesInFlight.Dec()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			PageDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rr.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the registry on /metrics.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}
