package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusconnect_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// HTTPMetrics records request counts and latency. It must wrap the ServeMux
// directly so the matched route pattern is visible after dispatch.
type HTTPMetrics struct{}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{}
}

func (m *HTTPMetrics) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
