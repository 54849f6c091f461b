package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
)

var _ stream.Recorder = (*Metrics)(nil)

func TestRecorderCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TurnStarted(chat.TierFlash)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsInFlight))

	m.ChunkApplied(chat.TierFlash)
	m.ChunkApplied(chat.TierFlash)
	m.StoreFailed("put")
	m.TurnFinished(chat.TierFlash, stream.StateDone, 2*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.TurnsInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksTotal.WithLabelValues("flash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("put")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("flash", "done")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Delete("/api/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/sessions/abc", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/sessions/{id}", "DELETE", "204")))
}
