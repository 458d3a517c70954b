package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"recruitportal/portal-api/internal/audit"
	"recruitportal/portal-api/internal/auth"
	"recruitportal/portal-api/internal/config"
	"recruitportal/portal-api/internal/metrics"
	"recruitportal/portal-api/internal/recruiting"
)

const maxBodyBytes = 1 << 20

type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
	Verify(token string) (auth.Claims, error)
}

type AuditLogger interface {
	Record(e audit.Event) error
}

type Deps struct {
	Auth            AuthService
	Store           recruiting.Store
	Audit           AuditLogger
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	RateLimit       config.RateLimitConfig
	CORSOrigins     []string
	CookieSecure    bool
	FrontendDistDir string
	Now             func() time.Time
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(deps),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewHandler builds the routed handler wrapped in the middleware chain:
// request id and access log, metrics, CORS, then rate limiting on /api/.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": deps.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	registerAuthHandlers(mux, deps)
	registerMetricHandlers(mux, deps)
	registerTrainingHandlers(mux, deps)
	registerFeedbackHandlers(mux, deps)
	registerContactHandlers(mux, deps)
	registerFrontendHandlers(mux, deps)

	var h http.Handler = mux
	h = newRateLimiter(deps.RateLimit, deps.Metrics).middleware(h)
	h = corsMiddleware(deps.CORSOrigins).Handler(h)
	return instrument(deps.Logger, deps.Metrics, h)
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requireClaims authenticates the bearer token. A missing header is 401; a
// token that fails verification for any reason is 403.
func requireClaims(w http.ResponseWriter, r *http.Request, deps Deps) (auth.Claims, bool) {
	if deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
		return auth.Claims{}, false
	}
	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return auth.Claims{}, false
	}
	claims, err := deps.Auth.Verify(token)
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			reason = "token expired"
		}
		deps.Logger.Debug("token rejected", zap.String("request_id", requestIDFromContext(r.Context())), zap.Error(err))
		writeError(w, http.StatusForbidden, reason)
		return auth.Claims{}, false
	}
	return claims, true
}

// guard applies the access guard and writes the generic 403 on denial.
func guard(w http.ResponseWriter, r *http.Request, deps Deps, claims auth.Claims, capability auth.Capability, ownerID int64, action string) bool {
	d := auth.Authorize(claims, capability, ownerID)
	if d.Allowed {
		return true
	}
	deps.Metrics.RecordDenied(string(capability))
	target := ""
	if ownerID > 0 {
		target = "user:" + strconv.FormatInt(ownerID, 10)
	}
	auditReq(deps.Audit, r, claims, action, target, audit.OutcomeDenied, string(capability))
	writeError(w, http.StatusForbidden, d.Reason)
	return false
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func pathUserID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps recruiting errors to status codes. Anything
// unexpected is logged and reported as a generic 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, deps Deps, op string, err error) {
	switch {
	case errors.Is(err, recruiting.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recruiting.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		deps.Logger.Error(op+" failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func auditReq(a AuditLogger, r *http.Request, claims auth.Claims, action, target, outcome, detail string) {
	if a == nil {
		return
	}
	_ = a.Record(audit.Event{
		RequestID: requestIDFromContext(r.Context()),
		Actor:     claims.Username,
		Role:      string(claims.Role),
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		IP:        clientIP(r),
		Detail:    strings.TrimSpace(detail),
	})
}
