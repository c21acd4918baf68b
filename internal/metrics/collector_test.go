package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats database.Stat

func (s staticStats) Stat() database.Stat { return database.Stat(s) }

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(nil, nil)
	require.NotNil(t, c.Registry())
	assert.Equal(t, "deckbuilder", c.cfg.Namespace)
	assert.Equal(t, "/metrics", c.Path())
}

func TestObserveRequest(t *testing.T) {
	c := NewCollector(&Config{Namespace: "test"}, prometheus.NewRegistry())

	c.ObserveRequest("GET", "/api/v1/cards", 200, 20*time.Millisecond)
	c.ObserveRequest("GET", "/api/v1/cards", 200, 30*time.Millisecond)
	c.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/v1/cards", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", unmatchedRoute, "404")))
}

func TestRegisterPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(&Config{Namespace: "test"}, reg)
	c.RegisterPool(staticStats{Total: 3, Idle: 1, Leased: 2, MaxSize: 10, Timeouts: 4, Discarded: 1})

	expected := `
# HELP test_pool_leased_connections Connections currently leased to requests
# TYPE test_pool_leased_connections gauge
test_pool_leased_connections 2
# HELP test_pool_acquire_timeouts_total Acquisitions that gave up after the connection timeout
# TYPE test_pool_acquire_timeouts_total counter
test_pool_acquire_timeouts_total 4
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_pool_leased_connections", "test_pool_acquire_timeouts_total")
	assert.NoError(t, err)
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	c := NewCollector(&Config{Namespace: "test"}, prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/v1/cards/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/api/v1/cards/1", "/api/v1/cards/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/v1/cards/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", unmatchedRoute, "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inflight))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	c := NewCollector(&Config{Namespace: "test"}, prometheus.NewRegistry())
	c.RegisterPool(staticStats{MaxSize: 10})
	c.ObserveRequest("GET", "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_pool_max_connections 10")
	assert.Contains(t, body, `test_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
