package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("OPTIONS", "/search", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/search", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	CORS("")(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	h := NewRateLimiter(2).Middleware(okHandler)

	call := func(addr string) int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"), "limits are per client IP")

	unlimited := NewRateLimiter(0).Middleware(okHandler)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		unlimited.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRateLimiterForgetsExpiredClients(t *testing.T) {
	l := NewRateLimiter(5)
	l.window = 20 * time.Millisecond
	h := l.Middleware(okHandler)

	call := func(addr string) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	size := func() int {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.data)
	}

	call("10.0.0.1:1000")
	call("10.0.0.2:1000")
	call("10.0.0.3:1000")
	assert.Equal(t, 3, size())

	time.Sleep(3 * l.window)
	call("10.0.0.4:1000")
	assert.Equal(t, 1, size(), "only the latest client is still tracked")
}

func TestRequestLogger(t *testing.T) {
	h := middleware.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTeapot, "short and stout")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.JSONEq(t, `{"error":"short and stout"}`, rr.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.9:5555"
	assert.Equal(t, "192.168.1.9", clientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", clientIP(req))
}
