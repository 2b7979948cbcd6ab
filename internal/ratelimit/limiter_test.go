// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowsUnderLimit(t *testing.T) {
	l := New(Config{GlobalRate: 100, GlobalBurst: 100, PerIPRate: 100, PerIPBurst: 100})
	defer l.Close()

	handler := l.Middleware(okHandler())
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMiddleware_RejectsPerIPBurst(t *testing.T) {
	l := New(Config{GlobalRate: 1000, GlobalBurst: 1000, PerIPRate: 1, PerIPBurst: 2})
	defer l.Close()

	handler := l.Middleware(okHandler())
	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
}

func TestMiddleware_PerIPIsolation(t *testing.T) {
	l := New(Config{GlobalRate: 1000, GlobalBurst: 1000, PerIPRate: 1, PerIPBurst: 1})
	defer l.Close()

	handler := l.Middleware(okHandler())

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.3:1"
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	// same IP exhausted
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// other IP unaffected
	other := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.4:1"
	handler.ServeHTTP(other, req2)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:9999"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}
