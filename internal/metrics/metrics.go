package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herohub_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herohub_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "herohub_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	aggregatorAccountSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herohub_aggregator_account_skips_total",
		Help: "Accounts skipped during workspace aggregation, by resource and reason.",
	}, []string{"resource", "reason"})

	completionFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herohub_completion_fallbacks_total",
		Help: "Completion requests that fell through to a retry tier, by stage.",
	}, []string{"stage"})
)

// Middleware records request counters and latency for every routed request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		statusCode := strconv.Itoa(status)
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route, statusCode).Observe(duration)
		if status >= http.StatusInternalServerError {
			httpErrorsTotal.WithLabelValues(c.Request.Method, route, statusCode).Inc()
		}
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AccountSkipped records an aggregator account that produced no results.
func AccountSkipped(resource, reason string) {
	aggregatorAccountSkips.WithLabelValues(resource, reason).Inc()
}

// CompletionFallback records a completion attempt that moved past its primary tier.
func CompletionFallback(stage string) {
	completionFallbacksTotal.WithLabelValues(stage).Inc()
}
