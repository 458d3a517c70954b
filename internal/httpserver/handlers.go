package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"recruitportal/portal-api/internal/audit"
	"recruitportal/portal-api/internal/auth"
	"recruitportal/portal-api/internal/recruiting"
	"recruitportal/portal-api/internal/session"
)

func registerAuthHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		sess, err := deps.Auth.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				deps.Metrics.RecordLogin("invalid_credentials")
				auditReq(deps.Audit, r, auth.Claims{Username: req.Username}, "auth.login", "", audit.OutcomeFailure, "invalid credentials")
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			deps.Metrics.RecordLogin("error")
			deps.Logger.Error("login failed",
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("username", req.Username),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		claims := auth.Claims{UserID: sess.User.ID, Username: sess.User.Username, Role: sess.User.Role}
		session.SetTokenCookie(w, sess.Token.Value, sess.Token.ExpiresAt, deps.CookieSecure)
		facade := session.New(session.NewCookieStore(w, r, deps.Auth, deps.CookieSecure), nil)
		next, err := facade.Login(claims)
		if err != nil {
			writeStoreError(w, r, deps, "session login", err)
			return
		}

		deps.Metrics.RecordLogin("success")
		auditReq(deps.Audit, r, claims, "auth.login", "", audit.OutcomeSuccess, "")
		writeJSON(w, http.StatusOK, map[string]any{
			"token": sess.Token.Value,
			"user": map[string]any{
				"id":       sess.User.ID,
				"username": sess.User.Username,
				"role":     sess.User.Role,
			},
			"expires_at": sess.Token.ExpiresAt.UTC().Format(time.RFC3339),
			"redirect":   next.Redirect,
		})
	})

	// Tokens are stateless; logout only drops the navigation cookie.
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		store := session.NewCookieStore(w, r, deps.Auth, deps.CookieSecure)
		facade := session.New(store, nil)
		marker, _ := facade.Current()
		next, err := facade.Logout()
		if err != nil {
			writeStoreError(w, r, deps, "session logout", err)
			return
		}
		if marker.User != "" {
			auditReq(deps.Audit, r, auth.Claims{Username: marker.User, Role: marker.UserType}, "auth.logout", "", audit.OutcomeSuccess, "")
		}
		writeJSON(w, http.StatusOK, map[string]string{"redirect": next.Redirect})
	})

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         claims.UserID,
			"username":   claims.Username,
			"role":       claims.Role,
			"expires_at": claims.ExpiresAtTime().UTC().Format(time.RFC3339),
		})
	})
}

func registerMetricHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("GET /api/metrics/{userId}", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		userID, ok := pathUserID(w, r, "userId")
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapSelfOrScout, userID, "metrics.list") {
			return
		}
		rows, err := deps.Store.ListMetrics(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, deps, "list metrics", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})

	mux.HandleFunc("POST /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapAthleteOnly, 0, "metrics.create") {
			return
		}
		var req recruiting.NewMetricRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := req.ToMetric(claims.UserID)
		if err != nil {
			writeStoreError(w, r, deps, "validate metric", err)
			return
		}
		m, err = deps.Store.CreateMetric(r.Context(), m)
		if err != nil {
			writeStoreError(w, r, deps, "create metric", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": m.ID, "message": "Metric logged successfully"})
	})

	mux.HandleFunc("GET /api/progress/{userId}", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		userID, ok := pathUserID(w, r, "userId")
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapSelfOrScout, userID, "progress.view") {
			return
		}
		now := deps.Now()
		rows, err := deps.Store.ListMetrics(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, deps, "list metrics", err)
			return
		}
		sessions, err := deps.Store.ListTraining(r.Context(), userID, recruiting.WeekStart(now))
		if err != nil {
			writeStoreError(w, r, deps, "list training", err)
			return
		}
		writeJSON(w, http.StatusOK, recruiting.BuildProgress(userID, rows, sessions, now))
	})
}

func registerTrainingHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("GET /api/workouts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, recruiting.Workouts())
	})

	mux.HandleFunc("GET /api/training/{userId}", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		userID, ok := pathUserID(w, r, "userId")
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapSelfOrScout, userID, "training.list") {
			return
		}
		rows, err := deps.Store.ListTraining(r.Context(), userID, deps.Now())
		if err != nil {
			writeStoreError(w, r, deps, "list training", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})

	mux.HandleFunc("POST /api/training", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapAthleteOnly, 0, "training.schedule") {
			return
		}
		var req recruiting.NewTrainingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ts, err := req.ToSession(claims.UserID)
		if err != nil {
			writeStoreError(w, r, deps, "validate training", err)
			return
		}
		ts, err = deps.Store.ScheduleTraining(r.Context(), ts)
		if err != nil {
			writeStoreError(w, r, deps, "schedule training", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": ts.ID, "message": "Training session scheduled"})
	})

	mux.HandleFunc("POST /api/training/complete", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapAthleteOnly, 0, "training.complete") {
			return
		}
		var req recruiting.CompleteTrainingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeStoreError(w, r, deps, "validate completion", err)
			return
		}
		target := "training:" + strconv.FormatInt(req.SessionID, 10)
		_, err := deps.Store.CompleteTraining(r.Context(), claims.UserID, req.SessionID, *req.Completed, strings.TrimSpace(req.Notes))
		if errors.Is(err, recruiting.ErrNotFound) {
			auditReq(deps.Audit, r, claims, "training.complete", target, audit.OutcomeFailure, "not found")
			writeError(w, http.StatusNotFound, "training session not found")
			return
		}
		if err != nil {
			writeStoreError(w, r, deps, "complete training", err)
			return
		}
		auditReq(deps.Audit, r, claims, "training.complete", target, audit.OutcomeSuccess, "")
		writeJSON(w, http.StatusOK, map[string]string{"message": "Training session updated"})
	})
}

func registerFeedbackHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("POST /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapScoutOnly, 0, "feedback.create") {
			return
		}
		var req recruiting.NewFeedbackRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		f, err := req.ToFeedback(claims.UserID, claims.Username)
		if err != nil {
			writeStoreError(w, r, deps, "validate feedback", err)
			return
		}
		f, err = deps.Store.CreateFeedback(r.Context(), f)
		if err != nil {
			writeStoreError(w, r, deps, "create feedback", err)
			return
		}
		auditReq(deps.Audit, r, claims, "feedback.create", "user:"+strconv.FormatInt(f.AthleteID, 10), audit.OutcomeSuccess, f.Category)
		writeJSON(w, http.StatusCreated, map[string]any{"id": f.ID, "message": "Feedback submitted successfully"})
	})

	mux.HandleFunc("GET /api/feedback/{athleteId}", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r, deps)
		if !ok {
			return
		}
		athleteID, ok := pathUserID(w, r, "athleteId")
		if !ok {
			return
		}
		if !guard(w, r, deps, claims, auth.CapSelfOrScout, athleteID, "feedback.list") {
			return
		}
		rows, err := deps.Store.ListFeedback(r.Context(), athleteID)
		if err != nil {
			writeStoreError(w, r, deps, "list feedback", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})
}

func registerContactHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("POST /api/contact", func(w http.ResponseWriter, r *http.Request) {
		var req recruiting.ContactFormRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		c, err := req.ToContact()
		if err != nil {
			writeStoreError(w, r, deps, "validate contact", err)
			return
		}
		if _, err := deps.Store.SaveContact(r.Context(), c); err != nil {
			writeStoreError(w, r, deps, "save contact", err)
			return
		}
		auditReq(deps.Audit, r, auth.Claims{Username: c.Email}, "contact.submit", "", audit.OutcomeSuccess, c.School)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Contact form submitted successfully"})
	})
}
