package httpserver

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recruitportal/portal-api/internal/config"
	"recruitportal/portal-api/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

// instrument tags the request with an id, then logs and counts it once the
// mux has resolved its route pattern.
func instrument(logger *zap.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.ObserveRequest(r.Pattern, r.Method, rec.status, elapsed)
		logger.Info("http request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", r.Pattern),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("ip", clientIP(r)),
		)
	})
}

func corsMiddleware(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         600,
	})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles /api/ per client IP with a token bucket that refills
// Requests tokens per Window.
type rateLimiter struct {
	cfg     config.RateLimitConfig
	metrics *metrics.Metrics
	nowFunc func() time.Time

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *rateLimiter {
	return &rateLimiter{
		cfg:     cfg,
		metrics: m,
		nowFunc: time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *rateLimiter) enabled() bool {
	return l.cfg.Requests > 0 && l.cfg.Window > 0
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.enabled() || !strings.HasPrefix(r.URL.Path, "/api/") || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if l.allow(l.key(r)) {
			next.ServeHTTP(w, r)
			return
		}
		l.metrics.RecordRateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, "too many requests")
	})
}

// key is the socket address unless the limiter sits behind a trusted proxy.
func (l *rateLimiter) key(r *http.Request) string {
	if l.cfg.TrustProxyHeaders {
		return clientIP(r)
	}
	return remoteHost(r)
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.prune(now)

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(l.cfg.Window/time.Duration(l.cfg.Requests)), l.cfg.Requests),
		}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops buckets idle for a full window; they would be full again.
func (l *rateLimiter) prune(now time.Time) {
	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > l.cfg.Window {
			delete(l.entries, k)
		}
	}
}

func (l *rateLimiter) retryAfterSeconds() int {
	seconds := int(math.Ceil((l.cfg.Window / time.Duration(l.cfg.Requests)).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
