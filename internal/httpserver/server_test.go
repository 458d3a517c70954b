package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitportal/portal-api/internal/audit"
	"recruitportal/portal-api/internal/auth"
	"recruitportal/portal-api/internal/config"
	"recruitportal/portal-api/internal/metrics"
	"recruitportal/portal-api/internal/recruiting"
	"recruitportal/portal-api/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAudit) Record(e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *recordingAudit) actions(outcome string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.events {
		if e.Outcome == outcome {
			out = append(out, e.Action)
		}
	}
	return out
}

type testEnv struct {
	handler http.Handler
	tokens  *auth.TokenService
	store   *recruiting.MemoryStore
	audit   *recordingAudit
	metrics *metrics.Metrics
	users   map[string]auth.User
}

type envOption func(*Deps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService(&auth.TokenConfig{Secret: []byte(testSecret), TTL: auth.DefaultTokenTTL})
	require.NoError(t, err)
	svc, err := auth.NewService(auth.NewInMemoryUserStore(), tokens)
	require.NoError(t, err)

	users := make(map[string]auth.User)
	for _, acct := range auth.DemoAccounts() {
		u, err := svc.Provision(context.Background(), acct.Username, acct.Password, acct.Role)
		require.NoError(t, err)
		users[u.Username] = u
	}

	env := &testEnv{
		tokens:  tokens,
		store:   recruiting.NewMemoryStore(),
		audit:   &recordingAudit{},
		metrics: metrics.New(),
		users:   users,
	}
	deps := Deps{
		Auth:      svc,
		Store:     env.store,
		Audit:     env.audit,
		Metrics:   env.metrics,
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.handler = NewHandler(deps)
	return env
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	u, ok := e.users[username]
	require.True(t, ok, "unknown user %s", username)
	tok, err := e.tokens.Issue(u.ID, u.Username, u.Role)
	require.NoError(t, err)
	return tok.Value
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "OK", body["status"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"])
	assert.NoError(t, err)
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "rid-42", rec.Header().Get("X-Request-Id"))
}

func TestMissingTokenIs401(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/metrics/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidOrExpiredTokenIs403(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/metrics/1", "not.a.token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	other, err := auth.NewTokenService(&auth.TokenConfig{Secret: []byte(strings.Repeat("x", 32)), TTL: time.Hour})
	require.NoError(t, err)
	forged, err := other.Issue(env.users["scout1"].ID, "scout1", auth.RoleScout)
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/metrics/1", forged.Value, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stale, err := auth.NewTokenService(&auth.TokenConfig{Secret: []byte(testSecret), TTL: time.Nanosecond})
	require.NoError(t, err)
	expired, err := stale.Issue(env.users["athlete"].ID, "athlete", auth.RoleAthlete)
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/metrics/1", expired.Value, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "token expired", decodeBody[map[string]string](t, rec)["error"])
}

func TestScoutCannotLogMetrics(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/metrics", env.token(t, "scout1"), map[string]any{
		"metric_type": "40yard", "value": 4.5, "date_recorded": "2024-03-01",
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied", decodeBody[map[string]string](t, rec)["error"])
	assert.Contains(t, env.audit.actions(audit.OutcomeDenied), "metrics.create")
}

func TestAthleteLogsMetric(t *testing.T) {
	env := newTestEnv(t)
	athlete := env.users["athlete"]

	rec := env.do(t, http.MethodPost, "/api/metrics", env.token(t, "athlete"), map[string]any{
		"metric_type": "40yard", "value": 4.5, "date_recorded": "2024-03-01", "notes": "turf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rows, err := env.store.ListMetrics(context.Background(), athlete.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "turf", rows[0].Notes)

	rec = env.do(t, http.MethodPost, "/api/metrics", env.token(t, "athlete"), map[string]any{"metric_type": "40yard"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteTrainingOwnedByAnotherUserIs404(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	otherAthlete := auth.User{ID: 99, Username: "athlete2", Role: auth.RoleAthlete}
	ts, err := env.store.ScheduleTraining(ctx, recruiting.TrainingSession{UserID: otherAthlete.ID, SessionDate: time.Now().UTC(), WorkoutType: "strength"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/training/complete", env.token(t, "athlete"), map[string]any{
		"sessionId": ts.ID, "completed": true,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	own, err := env.store.ScheduleTraining(ctx, recruiting.TrainingSession{UserID: env.users["athlete"].ID, SessionDate: time.Now().UTC(), WorkoutType: "strength"})
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/api/training/complete", env.token(t, "athlete"), map[string]any{
		"sessionId": own.ID, "completed": true, "notes": "felt strong",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.audit.actions(audit.OutcomeSuccess), "training.complete")

	rec = env.do(t, http.MethodPost, "/api/training/complete", env.token(t, "scout1"), map[string]any{
		"sessionId": own.ID, "completed": true,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func login(t *testing.T, env *testEnv, username, password string) (string, map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	return token, user, rec
}

func TestAthleteLoginScenario(t *testing.T) {
	env := newTestEnv(t)
	token, user, rec := login(t, env, "athlete", "training123")

	assert.Equal(t, "athlete", user["role"])
	assert.Equal(t, session.AthleteLanding, decodeBody[map[string]any](t, rec)["redirect"])
	userID := int64(user["id"].(float64))

	own := env.do(t, http.MethodGet, "/api/metrics/"+strconv.FormatInt(userID, 10), token, nil)
	assert.Equal(t, http.StatusOK, own.Code)

	other := env.do(t, http.MethodGet, "/api/metrics/"+strconv.FormatInt(userID+100, 10), token, nil)
	assert.Equal(t, http.StatusForbidden, other.Code)
}

func TestScoutLoginScenario(t *testing.T) {
	env := newTestEnv(t)
	token, user, _ := login(t, env, "scout1", "scout123")
	assert.Equal(t, "scout", user["role"])

	for _, id := range []string{"1", "2", "777"} {
		rec := env.do(t, http.MethodGet, "/api/metrics/"+id, token, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "metrics for user %s", id)
	}
}

func TestCoachIsProvisionedAsScout(t *testing.T) {
	env := newTestEnv(t)
	_, user, _ := login(t, env, "coach1", "coach123")
	assert.Equal(t, "scout", user["role"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	for _, creds := range []map[string]string{
		{"username": "athlete", "password": "wrong"},
		{"username": "nobody", "password": "training123"},
	} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	}
	assert.Len(t, env.audit.actions(audit.OutcomeFailure), 2)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "athlete"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	token, _, rec := login(t, env, "scout1", "scout123")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, session.ScoutLanding, decodeBody[map[string]any](t, rec)["redirect"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, session.LoginPage, decodeBody[map[string]string](t, out)["redirect"])
	cleared := out.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, "", cleared[len(cleared)-1].Value)
	assert.Less(t, cleared[len(cleared)-1].MaxAge, 0)
}

func TestMeReturnsClaims(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/auth/me", env.token(t, "coach1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "coach1", body["username"])
	assert.Equal(t, "scout", body["role"])
}

func TestFeedbackFlow(t *testing.T) {
	env := newTestEnv(t)
	athleteID := env.users["athlete"].ID

	rec := env.do(t, http.MethodPost, "/api/feedback", env.token(t, "athlete"), map[string]any{
		"athleteId": athleteID, "category": "speed", "feedback": "self praise", "rating": 5,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/feedback", env.token(t, "scout1"), map[string]any{
		"athleteId": athleteID, "category": "technique", "feedback": "Clean hip turn", "rating": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/feedback/"+strconv.FormatInt(athleteID, 10), env.token(t, "athlete"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]recruiting.Feedback](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "scout1", rows[0].ScoutName)

	rec = env.do(t, http.MethodGet, "/api/feedback/"+strconv.FormatInt(athleteID+1, 10), env.token(t, "athlete"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTrainingScheduleAndList(t *testing.T) {
	env := newTestEnv(t)
	athleteID := env.users["athlete"].ID
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	rec := env.do(t, http.MethodPost, "/api/training", env.token(t, "athlete"), map[string]any{
		"session_date": tomorrow, "workout_type": "ball-skills",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/training", env.token(t, "athlete"), map[string]any{
		"session_date": tomorrow, "workout_type": "yoga",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/training/"+strconv.FormatInt(athleteID, 10), env.token(t, "scout1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]recruiting.TrainingSession](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "ball-skills", rows[0].WorkoutType)

	rec = env.do(t, http.MethodGet, "/api/training/abc", env.token(t, "scout1"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	athleteID := env.users["athlete"].ID
	now := time.Now().UTC()

	_, _ = env.store.CreateMetric(ctx, recruiting.Metric{UserID: athleteID, MetricType: "40yard", Value: 4.6, DateRecorded: now.AddDate(0, -1, 0)})
	_, _ = env.store.CreateMetric(ctx, recruiting.Metric{UserID: athleteID, MetricType: "40yard", Value: 4.5, DateRecorded: now})
	_, _ = env.store.ScheduleTraining(ctx, recruiting.TrainingSession{UserID: athleteID, SessionDate: recruiting.Today(now), WorkoutType: "strength", Completed: true})

	rec := env.do(t, http.MethodGet, "/api/progress/"+strconv.FormatInt(athleteID, 10), env.token(t, "athlete"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[recruiting.ProgressReport](t, rec)
	assert.Equal(t, 100, report.Adherence)
	require.Len(t, report.Metrics, 1)
	require.NotNil(t, report.Metrics[0].Trend)
	assert.Equal(t, recruiting.TrendImproved, *report.Metrics[0].Trend)

	rec = env.do(t, http.MethodGet, "/api/progress/"+strconv.FormatInt(athleteID+5, 10), env.token(t, "athlete"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContactForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "Coach Reed", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Coach Reed", "title": "DB Coach", "school": "State", "email": "reed@state.edu", "message": "Interested",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.store.Contacts(), 1)
}

type failingStore struct {
	recruiting.Store
}

func (failingStore) ListMetrics(context.Context, int64) ([]recruiting.Metric, error) {
	return nil, errors.New("dial tcp 10.0.0.9:3306: connection refused")
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Store = failingStore{} })
	rec := env.do(t, http.MethodGet, "/api/metrics/1", env.token(t, "scout1"), nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody[map[string]string](t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.9")
}

func TestRateLimitOnAPI(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Minute}
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/health", "", nil).Code)
	}
	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	metricsRec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), "portal_rate_limited_total 1")
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Minute}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"athlete","password":"wrong"}`))
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestRateLimitTrustsForwardedForWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{Requests: 1, Window: time.Minute, TrustProxyHeaders: true}
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i)+", 203.0.113.7")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "client %d", i)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.CORSOrigins = []string{"https://portal.example"} })
	req := httptest.NewRequest(http.MethodOptions, "/api/metrics", nil)
	req.Header.Set("Origin", "https://portal.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://portal.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func writePage(t *testing.T, dir, name string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("<html>"+name+"</html>"), 0o644))
}

func TestFrontendNavigationIsGated(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"index.html", "login.html", "dashboard/index.html", "dashboard/scout-access.html", "css/site.css"} {
		writePage(t, dir, p)
	}
	env := newTestEnv(t, func(d *Deps) { d.FrontendDistDir = dir })

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
		}
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "index.html")
	assert.Equal(t, http.StatusOK, get("/css/site.css", "").Code)

	rec = get("/dashboard/index.html", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, session.LoginPage, rec.Header().Get("Location"))

	rec = get("/dashboard/index.html", "garbage")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, session.LoginPage, rec.Header().Get("Location"))

	athlete := env.token(t, "athlete")
	assert.Equal(t, http.StatusOK, get("/dashboard/index.html", athlete).Code)

	rec = get("/dashboard/scout-access.html", athlete)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, session.AthleteLanding, rec.Header().Get("Location"))

	rec = get("/login.html", env.token(t, "scout1"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, session.ScoutLanding, rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get("/missing.css", "").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/nope", "").Code)
}
