package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const slowRequestThreshold = time.Second

// RequestIDHeader carries the id assigned to each request
const RequestIDHeader = "X-Request-ID"

// MetricsMiddleware times every request and hands the trace to mc. Paths in skip
// are served untracked.
func MetricsMiddleware(mc *MetricsCollector, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipped[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			requestID := uuid.New().String()
			w.Header().Set(RequestIDHeader, requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			mc.RecordTrace(RequestTrace{
				RequestID: requestID,
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    wrapped.statusCode,
				StartTime: start,
				Duration:  duration,
			})

			// websocket connections are long-lived by nature
			if duration > slowRequestThreshold && !wrapped.hijacked {
				zap.S().Warnw("slow request detected",
					"requestId", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"duration", duration,
					"status", wrapped.statusCode)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code. It
// implements http.Hijacker so websocket upgrades pass through.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
	}
	rw.hijacked = true
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
