package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request id across service hops.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	route     func(*http.Request) string
	logger    *applog.Logger
	stats     *Stats
}

// Stats tracks request counters for the health endpoint
type Stats struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// Option configures the trace middleware.
type Option func(*Middleware)

// WithRoute sets the function that maps a request to its metrics label.
// Without it the raw path is used.
func WithRoute(route func(*http.Request) string) Option {
	return func(m *Middleware) { m.route = route }
}

// WithLogger sets the logger used for request lines.
func WithLogger(logger *applog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(extractIP func(*http.Request) string, opts ...Option) *Middleware {
	m := &Middleware{
		extractIP: extractIP,
		stats:     &Stats{},
		logger:    applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		logger := m.logger.With(applog.FieldRequestID, requestID)
		ctx = applog.IntoContext(ctx, logger)
		r = r.WithContext(ctx)

		logger.DebugContext(ctx, "HTTP request started",
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithClientIP(clientIP).
				ToSlice()...)

		atomic.AddInt64(&m.stats.TotalRequests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.StoreInt64(&m.stats.AverageResponseTime, duration.Microseconds())

		route := r.URL.Path
		if m.route != nil {
			route = m.route(r)
		}
		metrics.ObserveHTTP(route, r.Method, rw.statusCode, duration)

		level := slog.LevelInfo
		if rw.statusCode >= 400 && rw.statusCode < 500 {
			level = slog.LevelWarn
		} else if rw.statusCode >= 500 {
			level = slog.LevelError
		}
		args := applog.NewFields().
			WithComponent(logger.Component()).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
			WithClientIP(clientIP).
			ToSlice()
		logger.Slog().Log(ctx, level, "HTTP request completed", args...)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores id in ctx, for callers outside an HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetStats returns current counters
func (m *Middleware) GetStats() Stats {
	return Stats{
		TotalRequests:       atomic.LoadInt64(&m.stats.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.stats.AverageResponseTime),
	}
}

// validRequestID accepts short printable ids from upstream proxies.
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
