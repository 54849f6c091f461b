package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	})
}

func TestIdentifyPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/state?user=query", nil)
	req.Header.Set(UserHeader, "header")
	rr := httptest.NewRecorder()

	Identify(echoUser()).ServeHTTP(rr, req)
	assert.Equal(t, "header", rr.Body.String())
}

func TestIdentifyFallsBackToQuery(t *testing.T) {
	rr := httptest.NewRecorder()
	Identify(echoUser()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ws?user=abc", nil))
	assert.Equal(t, "abc", rr.Body.String())

	rr = httptest.NewRecorder()
	Identify(echoUser()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Empty(t, rr.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	rr := httptest.NewRecorder()
	CORS(echoUser()).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/tier", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), UserHeader)
}
