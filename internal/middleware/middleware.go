// Package middleware wraps handlers with the cross-cutting request
// plumbing: per-IP rate limiting and request metrics.
package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/corpusflower/corpusflower/internal/metrics"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

var logMW = logger_i.NewLogger("middleware")

// Wrap applies the standard middleware chain to a handler.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !limiterInstance.GetLimiter(ip).Allow() {
			logMW.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
		} else {
			next(rec, r)
		}

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}
