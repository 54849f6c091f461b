// Package metrics exposes Prometheus collectors for chat turns and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	// Turn metrics
	TurnsTotal       *prometheus.CounterVec
	TurnDuration     *prometheus.HistogramVec
	TurnsInFlight    prometheus.Gauge
	ChunksTotal      *prometheus.CounterVec
	StoreErrorsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.TurnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntra_turns_total",
			Help: "Total number of finished chat turns",
		},
		[]string{"tier", "state"},
	)

	m.TurnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syntra_turn_duration_seconds",
			Help:    "Duration of chat turns in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"tier"},
	)

	m.TurnsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "syntra_turns_in_flight",
			Help: "Number of chat turns currently streaming",
		},
	)

	m.ChunksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntra_stream_chunks_total",
			Help: "Total number of model chunks applied to drafts",
		},
		[]string{"tier"},
	)

	m.StoreErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntra_session_store_errors_total",
			Help: "Total number of failed session store operations during turns",
		},
		[]string{"op"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntra_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syntra_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	return m
}

// TurnStarted implements stream.Recorder.
func (m *Metrics) TurnStarted(chat.Tier) {
	m.TurnsInFlight.Inc()
}

// ChunkApplied implements stream.Recorder.
func (m *Metrics) ChunkApplied(tier chat.Tier) {
	m.ChunksTotal.WithLabelValues(string(tier)).Inc()
}

// StoreFailed implements stream.Recorder.
func (m *Metrics) StoreFailed(op string) {
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}

// TurnFinished implements stream.Recorder.
func (m *Metrics) TurnFinished(tier chat.Tier, state stream.State, elapsed time.Duration) {
	m.TurnsInFlight.Dec()
	m.TurnsTotal.WithLabelValues(string(tier), state.String()).Inc()
	m.TurnDuration.WithLabelValues(string(tier)).Observe(elapsed.Seconds())
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
