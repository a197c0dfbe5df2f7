package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/middleware"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAPIKeyAuth(t *testing.T) {
	auth := middleware.NewAPIKeyAuth([]string{"alpha", " beta ", ""})
	h := auth.Authenticate(okHandler)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid key", "Bearer alpha", http.StatusOK},
		{"second key trimmed", "bearer beta", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic alpha", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown key", "Bearer gamma", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/agents/create", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)
	assert.False(t, auth.Enabled())

	rec := httptest.NewRecorder()
	auth.Authenticate(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	h := middleware.CORS("https://dash.example, https://admin.example")(okHandler)

	t.Run("allowed preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/agents/search", nil)
		req.Header.Set("Origin", "https://dash.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/agents/search", nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("disallowed simple request passes without headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/search", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.example")
		rec := httptest.NewRecorder()
		middleware.CORS("*")(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", seen)
}

func TestObserve_RecoversPanics(t *testing.T) {
	h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), middleware.RequestID, middleware.Observe)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
}

func TestRateLimiter(t *testing.T) {
	lim := middleware.NewRateLimiter(0.001, 2)
	h := lim.Limit(okHandler)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/search", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "budgets are per client")
}

func TestRateLimiter_Disabled(t *testing.T) {
	lim := middleware.NewRateLimiter(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, lim.Allow("k"))
	}
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	lim := middleware.NewRateLimiter(0.001, 1)
	h := lim.Limit(okHandler)

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/search", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"), "rotating the header must not reset the budget")
}

func TestRateLimiter_TrustedProxy(t *testing.T) {
	lim := middleware.NewRateLimiter(0.001, 1)
	require.NoError(t, lim.TrustProxies("10.0.0.0/8", "192.168.1.1"))
	h := lim.Limit(okHandler)

	send := func(peer, fwd string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/search", nil)
		req.RemoteAddr = peer + ":5555"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.5", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.1", "198.51.100.1, 10.0.0.9"), "trusted hops are skipped")
	assert.Equal(t, http.StatusOK, send("10.0.0.5", "198.51.100.1, 198.51.100.2"), "the rightmost untrusted hop is the client")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.5", "spoofed, 198.51.100.2"))
}

func TestRateLimiter_TrustProxiesRejectsGarbage(t *testing.T) {
	lim := middleware.NewRateLimiter(1, 1)
	assert.Error(t, lim.TrustProxies("not-an-ip"))
	assert.Error(t, lim.TrustProxies("10.0.0.0/99"))
}
