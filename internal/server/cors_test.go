package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsHarness(p CORSPolicy) (http.Handler, *int) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	return NewCORS(p).Handler(next), &calls
}

func serve(h http.Handler, method string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/cards", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	h, calls := corsHarness(DefaultCORSPolicy())

	rec := serve(h, http.MethodDelete, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowedRequest(t *testing.T) {
	h, calls := corsHarness(DefaultCORSPolicy())

	rec := serve(h, http.MethodGet, map[string]string{"Origin": testOrigin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_RejectsBeforeHandler(t *testing.T) {
	tests := []struct {
		name   string
		method string
		origin string
	}{
		{"foreign origin", http.MethodGet, "https://evil.example"},
		{"disallowed method", http.MethodDelete, testOrigin},
		{"scheme mismatch", http.MethodGet, "https://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, calls := corsHarness(DefaultCORSPolicy())

			rec := serve(h, tt.method, map[string]string{"Origin": tt.origin})
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, 0, *calls)
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		method  string
		headers string
		want    int
	}{
		{"allowed", testOrigin, "POST", "Content-Type", http.StatusNoContent},
		{"allowed header case-insensitive", testOrigin, "GET", "content-type", http.StatusNoContent},
		{"no requested headers", testOrigin, "GET", "", http.StatusNoContent},
		{"foreign origin", "https://evil.example", "GET", "", http.StatusForbidden},
		{"disallowed method", testOrigin, "PUT", "", http.StatusForbidden},
		{"disallowed header", testOrigin, "POST", "Content-Type, X-Debug", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, calls := corsHarness(DefaultCORSPolicy())

			headers := map[string]string{
				"Origin":                        tt.origin,
				"Access-Control-Request-Method": tt.method,
			}
			if tt.headers != "" {
				headers["Access-Control-Request-Headers"] = tt.headers
			}
			rec := serve(h, http.MethodOptions, headers)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, 0, *calls, "preflight must never reach the handler")
			if tt.want == http.StatusNoContent {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestCORS_Allowed(t *testing.T) {
	c := NewCORS(CORSPolicy{
		AllowedOrigins: []string{"https://a.example", "https://b.example"},
		AllowedMethods: []string{"get", "post"},
		AllowedHeaders: []string{"content-type", "authorization"},
	})

	assert.True(t, c.Allowed("https://b.example", "GET", []string{"Authorization"}))
	assert.True(t, c.Allowed("https://a.example", "post", nil))
	assert.False(t, c.Allowed("https://c.example", "GET", nil))
	assert.False(t, c.Allowed("https://a.example", "PATCH", nil))
	assert.False(t, c.Allowed("https://a.example", "GET", []string{"X-Other"}))
}

func TestCORSPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultCORSPolicy().Validate())
	assert.Error(t, CORSPolicy{AllowedMethods: []string{"GET"}}.Validate())
	assert.Error(t, CORSPolicy{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}.Validate())
	assert.Error(t, CORSPolicy{AllowedOrigins: []string{testOrigin}}.Validate())
}
