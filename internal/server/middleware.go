package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")

			if strings.ToUpper(r.Method) == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type rateInfo struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows rps requests per client IP in each one-second window.
type RateLimiter struct {
	rps    int
	window time.Duration

	mu        sync.Mutex
	data      map[string]*rateInfo
	lastSweep time.Time
}

func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		rps:    rps,
		window: time.Second,
		data:   map[string]*rateInfo{},
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		now := time.Now()

		l.mu.Lock()
		l.sweep(now)
		ri, ok := l.data[ip]
		if !ok || now.After(ri.resetAt) {
			ri = &rateInfo{resetAt: now.Add(l.window)}
			l.data[ip] = ri
		}
		ri.count++
		count := ri.count
		reset := ri.resetAt
		l.mu.Unlock()

		if count > l.rps {
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Sub(now).Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sweep drops expired windows, at most once per window. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for ip, ri := range l.data {
		if now.After(ri.resetAt) {
			delete(l.data, ip)
		}
	}
}

// RequestLogger logs every request through logrus once it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"component":  "http",
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"ip":         clientIP(r),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
