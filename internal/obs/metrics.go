package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics shared by every endpoint.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Authentication metrics.
var (
	signinAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_signin_attempts_total",
			Help: "Sign-in attempts by outcome.",
		},
		[]string{"outcome"},
	)

	lockoutsTriggered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Accounts transitioned to locked.",
	})

	tokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_operations_total",
			Help: "Token operations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		signinAttempts, lockoutsTriggered, tokenOps,
	)
}

// SigninAttempt records a sign-in outcome: success, invalid, locked or
// error.
func SigninAttempt(outcome string) {
	signinAttempts.WithLabelValues(outcome).Inc()
}

// LockoutTriggered records an account transitioning to locked.
func LockoutTriggered() {
	lockoutsTriggered.Inc()
}

// TokenOperation records a token issue/verify/refresh outcome.
func TokenOperation(kind, outcome string) {
	tokenOps.WithLabelValues(kind, outcome).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses identifier segments so metric label
// cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if rest, ok := strings.CutPrefix(p, "/v1/admin/users/"); ok {
		if id, action, found := strings.Cut(rest, "/"); found && id != "" {
			return "/v1/admin/users/:id/" + action
		}
	}
	return p
}

// Instrument wraps a handler with request counting and latency
// observation.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
